package utils

import (
	"math/rand"
	"time"
)

// SerializedImage is an encoded frame ready to be written to an HTTP
// response.
type SerializedImage struct {
	Data      []byte
	Extension string
	MIMEType  string
}

// NormJitter returns d adjusted by a normally distributed amount with a
// standard deviation of d/4. The result is never negative.
func NormJitter(d time.Duration) time.Duration {
	rv := time.Duration(float64(d) + rand.NormFloat64()*float64(d)/4)
	if rv < 0 {
		return 0
	}
	return rv
}
