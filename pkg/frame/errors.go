package frame

import (
	"fmt"
)

type CapacityError struct {
	Size int64
}

func (e *CapacityError) Error() string {
	return fmt.Sprintf("frame: payload too large: %d bytes (max %d)", e.Size, int64(MaxPayloadSize))
}

func (e *CapacityError) Is(err error) bool {
	_, ok := err.(*CapacityError)
	return ok
}
