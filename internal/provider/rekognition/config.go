package rekognition

// Config holds configuration for AWS Rekognition provider
type Config struct {
	// Region is the AWS region where Rekognition service will be used (e.g., "us-east-1")
	Region string

	// MinTextConfidence drops text lines below this confidence (0-100)
	MinTextConfidence float32

	// DocumentLabels are the DetectLabels names accepted as an ID card
	DocumentLabels []string
}

// DefaultConfig returns a Config with default values
func DefaultConfig() Config {
	return Config{
		Region:            "us-east-1",
		MinTextConfidence: 50,
		DocumentLabels:    []string{"Id Cards", "Document", "Driving License", "Passport"},
	}
}
