package rekognition

import (
	"context"
	"errors"
	"fmt"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/rekognition"
	"github.com/aws/smithy-go"
)

const (
	errCodeAccessDenied       = "AccessDeniedException"
	errCodeInvalidParameter   = "InvalidParameterException"
	errCodeInvalidImageFormat = "InvalidImageFormatException"
	errCodeImageTooLarge      = "ImageTooLargeException"
	errCodeThrottling         = "ThrottlingException"
	errCodeThroughput         = "ProvisionedThroughputExceededException"
)

// API is the subset of the Rekognition client used by the provider
type API interface {
	DetectFaces(ctx context.Context, params *rekognition.DetectFacesInput, optFns ...func(*rekognition.Options)) (*rekognition.DetectFacesOutput, error)
	DetectText(ctx context.Context, params *rekognition.DetectTextInput, optFns ...func(*rekognition.Options)) (*rekognition.DetectTextOutput, error)
	DetectLabels(ctx context.Context, params *rekognition.DetectLabelsInput, optFns ...func(*rekognition.Options)) (*rekognition.DetectLabelsOutput, error)
}

// NewAPI builds the AWS Rekognition client using the default credential chain
func NewAPI(ctx context.Context, cfg Config) (API, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return rekognition.NewFromConfig(awsCfg), nil
}

// parseAPIError maps Rekognition error codes to package errors
func parseAPIError(op string, err error) error {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case errCodeAccessDenied:
			return fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
		case errCodeInvalidParameter, errCodeInvalidImageFormat, errCodeImageTooLarge:
			return fmt.Errorf("%s: %w: %s", op, ErrInvalidImage, apiErr.ErrorMessage())
		case errCodeThrottling, errCodeThroughput:
			return fmt.Errorf("%s: %w", op, ErrThrottled)
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}
