// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/danielhkuo/route-optimiser/planner"
)

// rosterFile is the YAML team description:
//
//	unit_size: 2
//	canvassers: [Ann, Ben, Cat, Dee]
//	exclusions:
//	  - [Ann, Ben]
type rosterFile struct {
	UnitSize   int        `yaml:"unit_size"`
	Canvassers []string   `yaml:"canvassers"`
	Exclusions [][]string `yaml:"exclusions"`
}

type roster struct {
	UnitSize   int
	Canvassers []planner.Canvasser
	Exclusions []planner.Exclusion
}

func loadRoster(path string) (roster, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return roster{}, fmt.Errorf("failed to read roster: %w", err)
	}

	var rf rosterFile
	if err := yaml.Unmarshal(data, &rf); err != nil {
		return roster{}, fmt.Errorf("failed to parse roster %s: %w", path, err)
	}
	return rf.resolve()
}

// resolve assigns IDs by roster position and maps exclusion names onto them.
func (rf rosterFile) resolve() (roster, error) {
	r := roster{UnitSize: rf.UnitSize}
	ids := make(map[string]string, len(rf.Canvassers))
	for i, name := range rf.Canvassers {
		name = strings.Join(strings.Fields(name), " ")
		if name == "" {
			return roster{}, fmt.Errorf("canvasser %d has no name", i+1)
		}
		key := strings.ToLower(name)
		if _, dup := ids[key]; dup {
			return roster{}, fmt.Errorf("canvasser %q is listed twice", name)
		}
		id := fmt.Sprintf("c%d", i+1)
		ids[key] = id
		r.Canvassers = append(r.Canvassers, planner.Canvasser{ID: id, Name: name})
	}

	for _, pair := range rf.Exclusions {
		if len(pair) != 2 {
			return roster{}, errors.New("each exclusion must name exactly two canvassers")
		}
		a, okA := ids[strings.ToLower(strings.TrimSpace(pair[0]))]
		b, okB := ids[strings.ToLower(strings.TrimSpace(pair[1]))]
		if !okA || !okB {
			return roster{}, fmt.Errorf("exclusion %v names someone not on the roster", pair)
		}
		if a == b {
			return roster{}, fmt.Errorf("exclusion %v pairs a canvasser with themselves", pair)
		}
		r.Exclusions = append(r.Exclusions, planner.Exclusion{A: a, B: b})
	}
	return r, nil
}
