/*
Copyright (C) 2026  Carl-Philip Hänsch

	This program is free software: you can redistribute it and/or modify
	it under the terms of the GNU General Public License as published by
	the Free Software Foundation, either version 3 of the License, or
	(at your option) any later version.

	This program is distributed in the hope that it will be useful,
	but WITHOUT ANY WARRANTY; without even the implied warranty of
	MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
	GNU General Public License for more details.

	You should have received a copy of the GNU General Public License
	along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/
package server

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// EnsureEngineChoice enforces the persisted engine-choice file: a plain
// text file named "engine" in workDir recording which engine a data
// directory was opened with. The first start writes choice; every start
// after that refuses to continue with a different one, a Config-kind
// startup error per the spec's error taxonomy.
func EnsureEngineChoice(workDir, choice string) error {
	path := filepath.Join(workDir, "engine")
	existing, err := os.ReadFile(path)
	if err == nil {
		prev := strings.TrimSpace(string(existing))
		if prev != choice {
			return fmt.Errorf("config: engine mismatch: data directory was opened with %q, refusing to start as %q", prev, choice)
		}
		return nil
	}
	if !os.IsNotExist(err) {
		return fmt.Errorf("config: reading engine choice file: %w", err)
	}
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return fmt.Errorf("config: creating working directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(choice), 0o644); err != nil {
		return fmt.Errorf("config: writing engine choice file: %w", err)
	}
	return nil
}
