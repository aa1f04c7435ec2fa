package rekognition

import (
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/rekognition/types"

	"github.com/saturnino-fabrica-de-software/verifica/internal/provider"
)

// regionLayout lists, per region, the Rekognition landmark types in contour order.
// Eyes follow outer corner, top, inner corner, bottom.
var regionLayout = []struct {
	region provider.LandmarkRegion
	types  []types.LandmarkType
}{
	{provider.RegionLeftEye, []types.LandmarkType{"leftEyeLeft", "leftEyeUp", "leftEyeRight", "leftEyeDown"}},
	{provider.RegionRightEye, []types.LandmarkType{"rightEyeLeft", "rightEyeUp", "rightEyeRight", "rightEyeDown"}},
	{provider.RegionLeftEyebrow, []types.LandmarkType{"leftEyeBrowLeft", "leftEyeBrowUp", "leftEyeBrowRight"}},
	{provider.RegionRightEyebrow, []types.LandmarkType{"rightEyeBrowLeft", "rightEyeBrowUp", "rightEyeBrowRight"}},
	{provider.RegionNose, []types.LandmarkType{"noseLeft", "nose", "noseRight"}},
	{provider.RegionOuterLips, []types.LandmarkType{"mouthLeft", "mouthUp", "mouthRight", "mouthDown"}},
	{provider.RegionFaceContour, []types.LandmarkType{"upperJawlineLeft", "midJawlineLeft", "chinBottom", "midJawlineRight", "upperJawlineRight"}},
}

// toRegions groups Rekognition landmarks into ordered regions.
// Missing points are skipped; regions with no points are omitted.
func toRegions(landmarks []types.Landmark) map[provider.LandmarkRegion][]provider.Point {
	byType := make(map[types.LandmarkType]provider.Point, len(landmarks))
	for _, lm := range landmarks {
		if lm.X == nil || lm.Y == nil {
			continue
		}
		byType[lm.Type] = provider.Point{
			X: float64(aws.ToFloat32(lm.X)),
			Y: float64(aws.ToFloat32(lm.Y)),
		}
	}

	regions := make(map[provider.LandmarkRegion][]provider.Point)
	for _, layout := range regionLayout {
		var points []provider.Point
		for _, t := range layout.types {
			if p, ok := byType[t]; ok {
				points = append(points, p)
			}
		}
		if len(points) > 0 {
			regions[layout.region] = points
		}
	}
	return regions
}
