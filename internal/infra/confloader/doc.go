// Package confloader loads layered configuration with koanf and watches
// configuration files with fsnotify.
//
// Priority (highest to lowest):
//
//  1. Command-line flags (LoadMap)
//  2. Environment variables (SECUREKV_SECTION_KEY)
//  3. Configuration file (YAML)
//  4. Defaults already present in the target struct
package confloader
