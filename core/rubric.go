package core

import (
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// Criterion is one scoring category of a Rubric.
type Criterion struct {
	Description string  `json:"description,omitempty" yaml:"description,omitempty"`
	Weight      float64 `json:"weight" yaml:"weight"`
}

// UnmarshalJSON accepts either a bare weight or {description, weight}.
func (c *Criterion) UnmarshalJSON(data []byte) error {
	var weight float64
	if err := json.Unmarshal(data, &weight); err == nil {
		*c = Criterion{Weight: weight}
		return nil
	}
	var desc string
	if err := json.Unmarshal(data, &desc); err == nil {
		*c = Criterion{Description: desc}
		return nil
	}
	type plain Criterion
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return fmt.Errorf("criterion must be a number, a string or {description, weight}: %w", err)
	}
	*c = Criterion(p)
	return nil
}

// UnmarshalYAML accepts the same shapes as UnmarshalJSON.
func (c *Criterion) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		var weight float64
		if err := node.Decode(&weight); err == nil {
			*c = Criterion{Weight: weight}
			return nil
		}
		*c = Criterion{Description: node.Value}
		return nil
	}
	type plain Criterion
	var p plain
	if err := node.Decode(&p); err != nil {
		return fmt.Errorf("criterion must be a number, a string or {description, weight}: %w", err)
	}
	*c = Criterion(p)
	return nil
}

// Rubric maps category names to criteria. It is read-only once built and
// safe to share between concurrent runs.
type Rubric map[string]Criterion

// Weights flattens the rubric into category -> weight.
func (r Rubric) Weights() map[string]float64 {
	out := make(map[string]float64, len(r))
	for name, c := range r {
		out[name] = c.Weight
	}
	return out
}

// Practices returns category -> description for categories that have one.
func (r Rubric) Practices() map[string]string {
	out := make(map[string]string, len(r))
	for name, c := range r {
		if c.Description != "" {
			out[name] = c.Description
		}
	}
	return out
}

// MergeRubric combines a best-practices mapping (category -> description)
// with a weights mapping (category -> weight).
func MergeRubric(practices map[string]string, weights map[string]float64) Rubric {
	r := make(Rubric, len(practices)+len(weights))
	for name, desc := range practices {
		c := r[name]
		c.Description = desc
		r[name] = c
	}
	for name, w := range weights {
		c := r[name]
		c.Weight = w
		r[name] = c
	}
	return r
}
