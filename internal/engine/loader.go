package engine

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/conveyor-ci/conveyor/internal/domain"
)

// ParseSpec парсит YAML-документ со спецификацией pipeline и валидирует его.
//
// Спецификация читается один раз при загрузке и считается неизменяемой
// в рамках запуска.
func ParseSpec(data []byte) (*domain.PipelineSpec, error) {
	var spec domain.PipelineSpec
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return nil, fmt.Errorf("parse pipeline spec: %w", err)
	}

	if err := Validate(&spec); err != nil {
		return nil, err
	}

	return &spec, nil
}

// LoadSpecFile читает и парсит спецификацию pipeline из файла.
func LoadSpecFile(path string) (*domain.PipelineSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read pipeline spec %s: %w", path, err)
	}
	return ParseSpec(data)
}
