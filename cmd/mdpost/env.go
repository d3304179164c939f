package main

import (
	"io"
	"os"
	"time"

	mdpost "github.com/alnah/go-mdpost"
)

// Environment holds injectable dependencies for testability.
type Environment struct {
	Now    func() time.Time
	Stdout io.Writer
	Stderr io.Writer
	// Backend, when set, replaces the Jupyter backend for every render.
	Backend mdpost.BackendFactory
}

// DefaultEnv returns the production environment.
func DefaultEnv() *Environment {
	return &Environment{
		Now:    time.Now,
		Stdout: os.Stdout,
		Stderr: os.Stderr,
	}
}
