// Copyright 2025 KrakLabs
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.
//
// For commercial licensing, contact: licensing@kraklabs.com
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package main

// GlobalFlags carries the flags every subcommand accepts, parsed once
// in main and threaded into each runXxx function and into
// NewProgressConfig (progress.go).
type GlobalFlags struct {
	// Quiet suppresses progress bars and human-readable chrome.
	Quiet bool

	// JSON switches output to machine-readable JSON on stdout and
	// auto-implies Quiet.
	JSON bool

	// Verbose raises logging verbosity; 1 enables debug logging, higher
	// values are reserved for future use.
	Verbose int

	// NoColor disables ANSI color in both ui output and progress bars.
	NoColor bool

	// ConfigPath overrides the default <workspace>/.cie/config.yaml
	// location; empty means use the default.
	ConfigPath string
}
