package curriculum

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// Course is one entry of the published curriculum.
type Course struct {
	Code     string `json:"code"`
	Title    string `json:"title"`
	Credits  int    `json:"credits"`
	Semester int    `json:"semester"`
	Elective bool   `json:"elective,omitempty"`
}

type Program struct {
	Name    string   `json:"name"`
	Degree  string   `json:"degree,omitempty"`
	Courses []Course `json:"courses"`
}

// Document is the department's curriculum: a read-only JSON file loaded
// once at startup, never mutated at runtime.
type Document struct {
	UpdatedAt string    `json:"updatedAt,omitempty"`
	Programs  []Program `json:"programs"`
}

func Load(path string) (*Document, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read curriculum document: %w", err)
	}

	var doc Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse curriculum document: %w", err)
	}

	return &doc, nil
}

// Program looks a program up by name, case-insensitively. Nil when absent.
func (d *Document) Program(name string) *Program {
	for i := range d.Programs {
		if strings.EqualFold(d.Programs[i].Name, name) {
			return &d.Programs[i]
		}
	}
	return nil
}
