package frameworks

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"

	"training-launcher/core/models"
)

// Container hyperparameter keys read by the SageMaker framework containers
const (
	KeyProgram           = "sagemaker_program"
	KeySubmitDirectory   = "sagemaker_submit_directory"
	KeyRegion            = "sagemaker_region"
	KeyContainerLogLevel = "sagemaker_container_log_level"
	KeyJobName           = "sagemaker_job_name"
)

// Python logging levels understood by sagemaker_container_log_level
const (
	LogLevelInfo  = 20
	LogLevelDebug = 10
)

// EncodeHyperparameters JSON-encodes every value, which is how the framework
// containers expect to receive them: strings arrive quoted, numbers and
// booleans bare, nested mappings as JSON objects.
func EncodeHyperparameters(hp models.Hyperparameters) (map[string]string, error) {
	encoded := make(map[string]string, len(hp))
	for _, key := range sortedKeys(hp) {
		value, err := encodeValue(hp[key])
		if err != nil {
			return nil, fmt.Errorf("failed to encode hyperparameter %s: %w", key, err)
		}
		encoded[key] = value
	}
	return encoded, nil
}

func encodeValue(v interface{}) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return "", err
	}
	return string(bytes.TrimRight(buf.Bytes(), "\n")), nil
}

func sortedKeys(hp models.Hyperparameters) []string {
	keys := make([]string, 0, len(hp))
	for k := range hp {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
