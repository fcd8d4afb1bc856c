package yaml

import (
	"encoding/hex"
	"fmt"
	"os"

	"github.com/Nazky/Auto-Backpork/internal/domain/entities"
	"gopkg.in/yaml.v3"
)

// yamlCatalog represents the raw YAML structure of a patch catalog. Byte
// patterns are hex strings.
type yamlCatalog struct {
	HighSdkThreshold uint32     `yaml:"high_sdk_threshold"`
	Gates            []yamlRule `yaml:"gates"`
	Revert           []yamlRule `yaml:"revert"`
	LibcStrings      []yamlRule `yaml:"libc_strings"`
}

type yamlRule struct {
	Name        string `yaml:"name"`
	Pattern     string `yaml:"pattern"`
	Replacement string `yaml:"replacement"`
	Required    bool   `yaml:"required"`
}

// CatalogParser parses patch catalog files. A catalog file fully replaces
// the built-in defaults: patch sets are data, not code paths.
type CatalogParser struct{}

// NewCatalogParser creates a new catalog parser
func NewCatalogParser() *CatalogParser {
	return &CatalogParser{}
}

// ParseFile parses a YAML catalog file into a PatchCatalog.
func (p *CatalogParser) ParseFile(filePath string) (*entities.PatchCatalog, error) {
	//nolint:gosec // G304: filePath is the configured patch catalog path
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog %s: %w", filePath, err)
	}
	return p.Parse(data)
}

// Parse parses YAML bytes into a PatchCatalog.
func (p *CatalogParser) Parse(data []byte) (*entities.PatchCatalog, error) {
	var yc yamlCatalog
	if err := yaml.Unmarshal(data, &yc); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if yc.HighSdkThreshold == 0 {
		return nil, fmt.Errorf("catalog must set high_sdk_threshold")
	}

	catalog := &entities.PatchCatalog{HighSdkThreshold: yc.HighSdkThreshold}
	var err error
	if catalog.Gates, err = convertRules(yc.Gates); err != nil {
		return nil, fmt.Errorf("gates: %w", err)
	}
	if catalog.Revert, err = convertRules(yc.Revert); err != nil {
		return nil, fmt.Errorf("revert: %w", err)
	}
	if catalog.LibcStrings, err = convertRules(yc.LibcStrings); err != nil {
		return nil, fmt.Errorf("libc_strings: %w", err)
	}

	if err := catalog.Validate(); err != nil {
		return nil, err
	}
	return catalog, nil
}

func convertRules(in []yamlRule) ([]entities.PatchRule, error) {
	rules := make([]entities.PatchRule, 0, len(in))
	for _, yr := range in {
		pattern, err := hex.DecodeString(yr.Pattern)
		if err != nil {
			return nil, fmt.Errorf("rule %s: bad pattern hex: %w", yr.Name, err)
		}
		replacement, err := hex.DecodeString(yr.Replacement)
		if err != nil {
			return nil, fmt.Errorf("rule %s: bad replacement hex: %w", yr.Name, err)
		}
		rules = append(rules, entities.PatchRule{
			Name:        yr.Name,
			Pattern:     pattern,
			Replacement: replacement,
			Required:    yr.Required,
		})
	}
	return rules, nil
}
