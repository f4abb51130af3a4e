// Package models provides the compartmental epidemic systems.
//
// Each model implements the [dynamo.System] interface. [SIR] also implements
// [dynamo.Conserved], which the simulator uses to re-normalize every step.
package models
