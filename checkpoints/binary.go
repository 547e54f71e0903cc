package checkpoints

import (
	"encoding/json"
	"fmt"
	"os"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

// The binary format is a protobuf-encoded structpb.Struct carrying the same
// fields as the JSON format. It is self-describing, so no generated schema
// code is needed to read it back.

// saveBinary saves checkpoint in binary protobuf format
func (cs *CheckpointSaver) saveBinary(checkpoint *Checkpoint, path string) error {
	cs.fillMetadata(checkpoint)

	pbStruct, err := checkpointToStruct(checkpoint)
	if err != nil {
		return fmt.Errorf("failed to encode checkpoint: %v", err)
	}

	data, err := proto.Marshal(pbStruct)
	if err != nil {
		return fmt.Errorf("failed to marshal checkpoint: %v", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write checkpoint file: %v", err)
	}

	return nil
}

// loadBinary loads checkpoint from binary protobuf format
func (cs *CheckpointSaver) loadBinary(path string) (*Checkpoint, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read checkpoint file: %v", err)
	}

	var pbStruct structpb.Struct
	if err := proto.Unmarshal(data, &pbStruct); err != nil {
		return nil, fmt.Errorf("failed to unmarshal checkpoint: %v", err)
	}

	return structToCheckpoint(&pbStruct)
}

// checkpointToStruct converts a checkpoint into a protobuf struct value.
// The JSON round trip keeps the field layout identical to the JSON format.
func checkpointToStruct(checkpoint *Checkpoint) (*structpb.Struct, error) {
	raw, err := json.Marshal(checkpoint)
	if err != nil {
		return nil, err
	}

	var fields map[string]interface{}
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, err
	}

	return structpb.NewStruct(fields)
}

// structToCheckpoint converts a protobuf struct value back into a checkpoint
func structToCheckpoint(pbStruct *structpb.Struct) (*Checkpoint, error) {
	raw, err := json.Marshal(pbStruct.AsMap())
	if err != nil {
		return nil, fmt.Errorf("failed to decode checkpoint: %v", err)
	}

	var checkpoint Checkpoint
	if err := json.Unmarshal(raw, &checkpoint); err != nil {
		return nil, fmt.Errorf("failed to decode checkpoint: %v", err)
	}

	return &checkpoint, nil
}
