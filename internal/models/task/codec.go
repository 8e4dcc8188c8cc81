package task

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed collection.schema.json
var collectionSchemaSource string

const collectionSchemaURL = "mem://todo/collection.schema.json"

var ErrMalformedCollection = errors.New("malformed task collection")

var collectionSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	compiler := jsonschema.NewCompiler()
	compiler.AssertFormat = true
	if err := compiler.AddResource(collectionSchemaURL, strings.NewReader(collectionSchemaSource)); err != nil {
		return nil, fmt.Errorf("загрузка схемы: %w", err)
	}
	return compiler.Compile(collectionSchemaURL)
})

// EncodeCollection serializes the whole collection in order.
func EncodeCollection(tasks []Task) (string, error) {
	if tasks == nil {
		tasks = []Task{}
	}
	data, err := json.Marshal(tasks)
	if err != nil {
		return "", fmt.Errorf("сериализация задач: %w", err)
	}
	return string(data), nil
}

// DecodeCollection validates the blob against the collection schema and
// rebuilds the tasks. A blank blob is an empty collection.
func DecodeCollection(blob string) ([]Task, error) {
	if strings.TrimSpace(blob) == "" {
		return []Task{}, nil
	}

	var raw any
	if err := json.Unmarshal([]byte(blob), &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedCollection, err)
	}

	schema, err := collectionSchema()
	if err != nil {
		return nil, err
	}
	if err := schema.Validate(raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedCollection, err)
	}

	var tasks []Task
	if err := json.Unmarshal([]byte(blob), &tasks); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedCollection, err)
	}

	seen := make(map[int64]struct{}, len(tasks))
	for i := range tasks {
		if _, dup := seen[tasks[i].ID]; dup {
			return nil, fmt.Errorf("%w: повтор id %d", ErrMalformedCollection, tasks[i].ID)
		}
		seen[tasks[i].ID] = struct{}{}

		if tasks[i].Priority == "" {
			tasks[i].Priority = PriorityLow
		}
		if at, ok := tasks[i].ReminderDate.Get(); ok {
			tasks[i].ReminderDate = Some(at.UTC())
		}
	}
	if tasks == nil {
		tasks = []Task{}
	}
	return tasks, nil
}
