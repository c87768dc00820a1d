package domain

import "strings"

// Command is an external program invocation. Commands are data so that
// executors can be swapped and the exact sequence issued for a unit can be
// asserted on.
type Command struct {
	Name string
	Args []string
}

// String renders the command as a shell line, single-quoting arguments that
// contain characters outside a conservative safe set.
func (c Command) String() string {
	parts := make([]string, 0, len(c.Args)+1)
	parts = append(parts, c.Name)
	for _, a := range c.Args {
		parts = append(parts, shellQuote(a))
	}
	return strings.Join(parts, " ")
}

func shellQuote(s string) string {
	if s == "" {
		return "''"
	}
	for _, r := range s {
		if !isShellSafe(r) {
			return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
		}
	}
	return s
}

func isShellSafe(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return true
	}
	return strings.ContainsRune("-_./:,+@%", r)
}

// ColorReliefCommand colourises a value raster into a Cloud Optimized GeoTIFF
// using the palette's nearest colour entries.
func ColorReliefCommand(valuePath, palettePath, colorPath string) Command {
	return Command{Name: "gdaldem", Args: []string{
		"color-relief", valuePath, palettePath, colorPath,
		"-alpha", "-nearest_color_entry",
		"-of", "COG",
		"-co", "COMPRESS=LZW",
		"-co", "PREDICTOR=YES",
	}}
}

func MoveCommand(src, dst string) Command {
	return Command{Name: "mv", Args: []string{src, dst}}
}

func RemoveCommand(path string) Command {
	return Command{Name: "rm", Args: []string{"-f", path}}
}
