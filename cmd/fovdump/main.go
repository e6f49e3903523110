// fovdump prints the field of view of one observer on a glyph map.
package main

import (
	"bufio"
	"fmt"
	"os"
	"strconv"

	"github.com/l1jgo/sightline/internal/data"
	"github.com/l1jgo/sightline/internal/fov"
)

func main() {
	if len(os.Args) < 5 {
		fmt.Fprintln(os.Stderr, "Usage: fovdump <map.txt> <x> <y> <distance> [-omniscient]")
		os.Exit(1)
	}

	grid, err := data.LoadGlyphFile(os.Args[1], os.Getenv("FOVDUMP_CHARSET"))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	var nums [3]int
	for i := range nums {
		n, err := strconv.Atoi(os.Args[2+i])
		if err != nil {
			fmt.Fprintf(os.Stderr, "bad number %q\n", os.Args[2+i])
			os.Exit(1)
		}
		nums[i] = n
	}
	observer := fov.TileCoord{X: nums[0], Y: nums[1]}
	omniscient := len(os.Args) > 5 && os.Args[5] == "-omniscient"

	visible, err := fov.ComputeVisibleTiles(grid, observer, nums[2], omniscient)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	w := bufio.NewWriter(os.Stdout)
	defer w.Flush()
	for y := 0; y < grid.Height(); y++ {
		for x := 0; x < grid.Width(); x++ {
			c := fov.TileCoord{X: x, Y: y}
			switch {
			case c == observer:
				w.WriteByte('@')
			case !visible.Contains(c):
				w.WriteByte(' ')
			default:
				op, _ := grid.Opacity(c)
				if op == fov.Opaque {
					w.WriteByte('o')
				} else {
					w.WriteByte('_')
				}
			}
		}
		w.WriteByte('\n')
	}
	fmt.Fprintf(w, "%d tiles visible from %v\n", visible.Len(), observer)
}
