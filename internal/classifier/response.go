package classifier

import (
	"encoding/json"
	"fmt"
	"io"
)

type detectionResponse struct {
	Detections []Detection `json:"detections"`
}

func decodeDetections(r io.Reader) ([]Detection, error) {
	var resp detectionResponse
	if err := json.NewDecoder(r).Decode(&resp); err != nil {
		return nil, fmt.Errorf("decode detections: %w", err)
	}
	return resp.Detections, nil
}
