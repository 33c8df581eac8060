// Package formats provides parsers for EverQuest zone file formats.
package formats

// Note: WLD (S3D world fragments) is implemented in wld.go
// Note: ZON (EQG v1-3 zone scene) is implemented in zon.go
// Note: MOD/TER (EQG models and terrain meshes) are implemented in eqgmodel.go
// Note: EQG v4 text zones and heightfield tiles are implemented in terrain.go
