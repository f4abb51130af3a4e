// Package viz is the terminal dashboard: four rate sliders, a cluster
// selector and before/after infection curves drawn with asciigraph.
//
// # Key Bindings
//
//	j/k    - Select a slider
//	h/l    - Move the slider one step
//	enter  - Type an exact value
//	tab    - Cycle the cluster filter
//	r      - Reset to the configured values
//	q      - Quit
package viz
