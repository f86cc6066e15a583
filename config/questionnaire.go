package config

import (
	"DonorBot/model"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type questionnaireFile struct {
	Questions []model.Question `yaml:"questions"`
}

// LoadQuestions reads a questionnaire from a YAML file. An empty path
// returns the default donor questionnaire.
func LoadQuestions(path string) ([]model.Question, error) {
	if path == "" {
		return model.DefaultQuestions(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read questionnaire: %w", err)
	}

	var f questionnaireFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse questionnaire %s: %w", path, err)
	}
	if err := model.ValidateQuestions(f.Questions); err != nil {
		return nil, fmt.Errorf("questionnaire %s: %w", path, err)
	}
	return f.Questions, nil
}
