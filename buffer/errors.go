package buffer

import "errors"

var (
	ErrOverflow  = errors.New("buffer: capacity exceeded")
	ErrUnderflow = errors.New("buffer: read past end")
)

func IsOverflow(err error) bool  { return errors.Is(err, ErrOverflow) }
func IsUnderflow(err error) bool { return errors.Is(err, ErrUnderflow) }
