// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package domain reads and writes planning domains as YAML documents and
// compiles them into knowledge values.
package domain

import (
	"errors"
	"fmt"
	"os"
	"regexp"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/AleutianAI/AleutianPlanner/services/planner/knowledge"
)

// MaxDocumentBytes bounds the size of a domain document.
const MaxDocumentBytes = 1 << 20

// Package-level error definitions.
var (
	ErrInvalidDocument  = errors.New("invalid domain document")
	ErrDocumentTooLarge = errors.New("domain document too large")
	ErrNoGoals          = errors.New("domain document has no goals")
)

var (
	documentValidate *validator.Validate
	namePattern      = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]{0,63}$`)
)

func init() {
	documentValidate = validator.New()
	_ = documentValidate.RegisterValidation("domainname", validateDomainName)
}

func validateDomainName(fl validator.FieldLevel) bool {
	return namePattern.MatchString(fl.Field().String())
}

// ValidName reports whether name can identify a stored domain.
func ValidName(name string) bool {
	return namePattern.MatchString(name)
}

// Document is the serialized form of a planning domain.
//
// Description:
//
//	Every entry is one line of the domain text format: actions such as
//	"pickup X: ontable X, clear X, handempty -> holding X", constraints
//	such as "holding X -> not holding Y", type declarations such as
//	"X, Y: s3, s5" and facts such as "on s3 s5". Goals are optional in a
//	stored document because callers may supply their own.
//
// Validation:
//
//	Uses go-playground/validator:
//	  - Name: required, lowercase letters, digits, '-' and '_', at most 64
//	  - Actions: every entry non-empty, at most 256 entries
//	  - Initial, Goals, Types, Constraints: every entry non-empty
//
//	Compile additionally rejects actions named knowledge.ReservedActionName.
type Document struct {
	Name        string   `yaml:"name" json:"name" validate:"required,domainname"`
	Description string   `yaml:"description,omitempty" json:"description,omitempty" validate:"max=1024"`
	Actions     []string `yaml:"actions" json:"actions" validate:"max=256,dive,required"`
	Constraints []string `yaml:"constraints,omitempty" json:"constraints,omitempty" validate:"dive,required"`
	Types       []string `yaml:"types,omitempty" json:"types,omitempty" validate:"dive,required"`
	Initial     []string `yaml:"initial,omitempty" json:"initial,omitempty" validate:"dive,required"`
	Goals       []string `yaml:"goals,omitempty" json:"goals,omitempty" validate:"dive,required"`
}

// Validate checks struct constraints and that every line parses.
func (d Document) Validate() error {
	if err := documentValidate.Struct(d); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	if _, err := d.Compile(); err != nil {
		return err
	}
	return nil
}

// Compiled is a document turned into knowledge values.
type Compiled struct {
	Name    string
	Problem knowledge.Problem
	Goals   []knowledge.Fact
}

// Compile parses every line of the document.
//
// Outputs:
//   - Compiled: The problem and goals.
//   - error: The first *knowledge.ParseError encountered, wrapped with the
//     section it came from, or ErrInvalidDocument for an action using
//     knowledge.ReservedActionName.
func (d Document) Compile() (Compiled, error) {
	var problem knowledge.Problem
	for i, line := range d.Actions {
		a, err := knowledge.ParseAction(line)
		if err != nil {
			return Compiled{}, fmt.Errorf("actions[%d]: %w", i, err)
		}
		if a.Predicate.Name == knowledge.ReservedActionName {
			return Compiled{}, fmt.Errorf("%w: actions[%d]: action name %q is reserved", ErrInvalidDocument, i, a.Predicate.Name)
		}
		problem.Actions = append(problem.Actions, a)
	}
	for i, line := range d.Constraints {
		c, err := knowledge.ParseConstraint(line)
		if err != nil {
			return Compiled{}, fmt.Errorf("constraints[%d]: %w", i, err)
		}
		problem.Constraints = append(problem.Constraints, c)
	}
	for i, line := range d.Types {
		t, err := knowledge.ParseTypeDeclaration(line)
		if err != nil {
			return Compiled{}, fmt.Errorf("types[%d]: %w", i, err)
		}
		problem.Types = append(problem.Types, t)
	}
	initial, err := parseFactLines("initial", d.Initial)
	if err != nil {
		return Compiled{}, err
	}
	problem.InitialState = knowledge.NewState(initial...)

	goals, err := parseFactLines("goals", d.Goals)
	if err != nil {
		return Compiled{}, err
	}
	return Compiled{Name: d.Name, Problem: problem, Goals: goals}, nil
}

// ParseGoals parses goal lines supplied outside a document.
func ParseGoals(lines []string) ([]knowledge.Fact, error) {
	return parseFactLines("goals", lines)
}

func parseFactLines(section string, lines []string) ([]knowledge.Fact, error) {
	out := make([]knowledge.Fact, 0, len(lines))
	for i, line := range lines {
		f, err := knowledge.ParseFact(line)
		if err != nil {
			return nil, fmt.Errorf("%s[%d]: %w", section, i, err)
		}
		out = append(out, f)
	}
	return out, nil
}

// Parse decodes a YAML document and validates it.
func Parse(data []byte) (Document, error) {
	if len(data) > MaxDocumentBytes {
		return Document{}, ErrDocumentTooLarge
	}
	var d Document
	if err := yaml.Unmarshal(data, &d); err != nil {
		return Document{}, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	if err := d.Validate(); err != nil {
		return Document{}, err
	}
	return d, nil
}

// Load reads and parses the document at path.
func Load(path string) (Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Document{}, fmt.Errorf("read domain %s: %w", path, err)
	}
	return Parse(data)
}

// Marshal encodes the document as YAML.
func (d Document) Marshal() ([]byte, error) {
	return yaml.Marshal(d)
}

// FromProblem renders a problem and goals back into a document.
func FromProblem(name string, problem knowledge.Problem, goals []knowledge.Fact) Document {
	d := Document{Name: name}
	for _, a := range problem.Actions {
		d.Actions = append(d.Actions, a.String())
	}
	for _, c := range problem.Constraints {
		d.Constraints = append(d.Constraints, c.String())
	}
	for _, t := range problem.Types {
		d.Types = append(d.Types, t.String())
	}
	for _, f := range problem.InitialState.Facts() {
		d.Initial = append(d.Initial, f.String())
	}
	for _, g := range goals {
		d.Goals = append(d.Goals, g.String())
	}
	return d
}
