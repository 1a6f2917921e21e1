package frameworks

import (
	"fmt"

	"training-launcher/core/models"
)

// Distribution hyperparameter keys for the model parallel library and its MPI launcher
const (
	KeyModelParallelParameters = "mp_parameters"
	KeyMPIEnabled              = "sagemaker_mpi_enabled"
	KeyMPIProcessesPerHost     = "sagemaker_mpi_num_of_processes_per_host"
	KeyMPICustomOptions        = "sagemaker_mpi_custom_mpi_options"
)

// ModelParallelSetup turns a Distribution into launcher hyperparameters
type ModelParallelSetup struct{}

// Hyperparameters returns the distribution keys to merge into the job's
// hyperparameters before encoding.
func (m *ModelParallelSetup) Hyperparameters(d models.Distribution) (models.Hyperparameters, error) {
	if err := m.validate(d); err != nil {
		return nil, fmt.Errorf("invalid distribution: %w", err)
	}

	hp := models.Hyperparameters{}
	if d.ModelParallel.Enabled {
		hp[KeyModelParallelParameters] = d.ModelParallel.Parameters
	}
	if d.MPI.Enabled {
		hp[KeyMPIEnabled] = true
		hp[KeyMPIProcessesPerHost] = d.MPI.ProcessesPerHost
		hp[KeyMPICustomOptions] = d.MPI.CustomMPIOptions
	}
	return hp, nil
}

// validate only rejects combinations the launcher cannot express. Degrees and
// counts are passed through as given.
func (m *ModelParallelSetup) validate(d models.Distribution) error {
	if d.ModelParallel.Enabled && !d.MPI.Enabled {
		return fmt.Errorf("model parallelism requires the mpi launcher")
	}
	if d.ModelParallel.Parameters.FP16 && d.ModelParallel.Parameters.BF16 {
		return fmt.Errorf("fp16 and bf16 are mutually exclusive")
	}
	return nil
}
