package rekognition

import "errors"

var (
	// ErrInvalidCredentials indicates that AWS credentials are invalid or missing
	ErrInvalidCredentials = errors.New("invalid or missing AWS credentials")

	// ErrInvalidImage indicates that the image is empty, too large or in an unsupported format
	ErrInvalidImage = errors.New("invalid image for rekognition")

	// ErrThrottled indicates that Rekognition rejected the call for rate reasons
	ErrThrottled = errors.New("rekognition request throttled")
)
