package garimpo

import (
	"github.com/zaircost/garimpo/artifact"
	"github.com/zaircost/garimpo/research"
)

// MassiveData is the aggregate artifact of one collection run.
type MassiveData = artifact.MassiveData

// Stats holds the run counters embedded in the artifact.
type Stats = artifact.Stats

// Context is the business framing passed into a collection run.
type Context = research.Context

// ExpertKnowledge is the optional deep-study output.
type ExpertKnowledge = artifact.ExpertKnowledge
