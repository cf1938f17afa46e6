// Package render exports scan results as visual artifacts.
//
// The dependency tree of a [scan.Report] can be converted to Graphviz
// DOT with [ToDOT] and rasterized to SVG with [RenderSVG]. Node styling
// encodes the analysis outcome: fill color follows license severity,
// circular dependencies are dashed, duplicate versions carry an orange
// border.
package render
