// Package output renders securekv CLI results as a table, JSON or YAML.
package output
