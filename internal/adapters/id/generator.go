package id

import (
	gonanoid "github.com/matoous/go-nanoid/v2"
)

type Generator struct{}

func New() *Generator {
	return &Generator{}
}

func (g *Generator) generate(prefix string) string {
	id, err := gonanoid.New(21)
	if err != nil {
		return prefix + "_fallback"
	}
	return prefix + "_" + id
}

func (g *Generator) GenerateVersionID() string {
	return g.generate("cv")
}

func (g *Generator) GenerateMemoryItemID() string {
	return g.generate("cmi")
}

func (g *Generator) GenerateFeedbackID() string {
	return g.generate("cfb")
}

func (g *Generator) GenerateBackupID() string {
	return g.generate("cbk")
}
