// SPDX-License-Identifier: EPL-2.0

// Package config loads recorder settings from YAML.
//
// Example file:
//
//	device: ""            # first device found
//	sample_rate: 16000
//	bit_depth: 16
//	max_duration: 90s
//	codec: wav
//	output_path: /var/lib/audcap/take.wav
//	trim: true
//	log_level: debug
//	replay:
//	  dir: ./fixtures
package config
