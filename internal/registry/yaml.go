package registry

import (
	"io"
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/brandlens/brandlens-cli/internal/model"
)

type yamlQuestion struct {
	ID       string `yaml:"id"`
	Text     string `yaml:"text"`
	Category string `yaml:"category"`
}

type yamlBattery struct {
	Questions []yamlQuestion `yaml:"questions"`
}

// LoadYAMLFile reads a question battery from a YAML file.
func LoadYAMLFile(path string) ([]model.Question, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrap(err, "registry: open yaml file")
	}
	defer f.Close()

	return LoadYAML(f, path)
}

// LoadYAML reads a question battery from YAML. The document either has a
// top-level "questions" list or is itself a list of questions.
func LoadYAML(r io.Reader, source string) ([]model.Question, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, eris.Wrap(err, "registry: read yaml")
	}

	var battery yamlBattery
	if err := yaml.Unmarshal(data, &battery); err != nil {
		var bare []yamlQuestion
		if berr := yaml.Unmarshal(data, &bare); berr != nil {
			return nil, eris.Wrap(err, "registry: parse yaml")
		}
		battery.Questions = bare
	}

	questions := make([]model.Question, 0, len(battery.Questions))
	for _, yq := range battery.Questions {
		questions = append(questions, model.Question{
			ID:       yq.ID,
			Text:     yq.Text,
			Category: yq.Category,
		})
	}

	return finalize(questions, source)
}
