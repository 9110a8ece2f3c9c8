package vitals

import (
	"fmt"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

// ortEnv guards process-wide ONNX Runtime initialization.
var ortEnv struct { //nolint:gochecknoglobals // runtime is a process singleton
	once sync.Once
	err  error
}

func initORT(libPath string) error {
	ortEnv.once.Do(func() {
		if libPath != "" {
			ort.SetSharedLibraryPath(libPath)
		}
		ortEnv.err = ort.InitializeEnvironment()
	})
	return ortEnv.err
}

// onnxSession runs a regressor with one float32 input [batch, features]
// and one output [batch] or [batch, 1].
type onnxSession struct {
	session    *ort.DynamicAdvancedSession
	inputName  string
	outputName string
	features   int64
	outputRank int
}

func newONNXSession(modelPath, libPath string, features int) (*onnxSession, error) {
	if err := initORT(libPath); err != nil {
		return nil, fmt.Errorf("onnx: initialize runtime: %w", err)
	}

	inputs, outputs, err := ort.GetInputOutputInfo(modelPath)
	if err != nil {
		return nil, fmt.Errorf("onnx: read model info: %w", err)
	}
	if len(inputs) != 1 || len(outputs) == 0 {
		return nil, fmt.Errorf("%w: want 1 input and at least 1 output, got %d and %d", ErrModel, len(inputs), len(outputs))
	}
	in := inputs[0]
	if len(in.Dimensions) != 2 || (in.Dimensions[1] > 0 && in.Dimensions[1] != int64(features)) {
		return nil, fmt.Errorf("%w: input shape %v, want [batch, %d]", ErrModel, in.Dimensions, features)
	}
	out := outputs[0]
	if rank := len(out.Dimensions); rank < 1 || rank > 2 {
		return nil, fmt.Errorf("%w: output shape %v", ErrModel, out.Dimensions)
	}

	opts, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("onnx: session options: %w", err)
	}
	defer opts.Destroy()
	opts.SetIntraOpNumThreads(2)
	opts.SetInterOpNumThreads(1)

	session, err := ort.NewDynamicAdvancedSession(modelPath, []string{in.Name}, []string{out.Name}, opts)
	if err != nil {
		return nil, fmt.Errorf("onnx: create session: %w", err)
	}
	return &onnxSession{
		session:    session,
		inputName:  in.Name,
		outputName: out.Name,
		features:   int64(features),
		outputRank: len(out.Dimensions),
	}, nil
}

// predict runs standardized rows through the model.
func (s *onnxSession) predict(rows [][]float64) ([]float64, error) {
	batch := int64(len(rows))
	flat := make([]float32, 0, batch*s.features)
	for _, r := range rows {
		if int64(len(r)) != s.features {
			return nil, fmt.Errorf("%w: row has %d values, want %d", ErrFeatureCount, len(r), s.features)
		}
		for _, v := range r {
			flat = append(flat, float32(v))
		}
	}

	input, err := ort.NewTensor(ort.NewShape(batch, s.features), flat)
	if err != nil {
		return nil, fmt.Errorf("onnx: input tensor: %w", err)
	}
	defer input.Destroy()

	outShape := ort.NewShape(batch)
	if s.outputRank == 2 {
		outShape = ort.NewShape(batch, 1)
	}
	output, err := ort.NewEmptyTensor[float32](outShape)
	if err != nil {
		return nil, fmt.Errorf("onnx: output tensor: %w", err)
	}
	defer output.Destroy()

	if err := s.session.Run([]ort.Value{input}, []ort.Value{output}); err != nil {
		return nil, fmt.Errorf("onnx: inference: %w", err)
	}

	data := output.GetData()
	res := make([]float64, len(data))
	for i, v := range data {
		res[i] = float64(v)
	}
	return res, nil
}

func (s *onnxSession) close() error {
	return s.session.Destroy()
}
