// Package export serializes channel summaries as delimited text. The column
// order and the 4-decimal rate precision are a compatibility contract with
// downstream spreadsheet tooling — change them and saved exports stop lining
// up across versions.
package export
