// Package redcap turns arbitrary source tables into REDCap-ready files.
//
// GenerateTemplate derives a header list or a data-dictionary skeleton from a
// source table's header row. Once a person has completed the skeleton,
// Remap renames and reorders the source table's columns to match it.
package redcap
