package modules

// FillAddresses maps polyphonic X and Y voltages in the 0 to 10 V range to 1D
// indices of a width x height channel, offset by (xoff, yoff).
//
// Voices carried by Y address a row, and a column when X carries them too.
// Voices carried by X only address the whole channel as a single line. Every
// other voice follows the previous one by polyIncrement. All addresses are
// clamped into the channel.
func FillAddresses(
	addresses *[MaxVoices]int,
	xoff, yoff int,
	x, y *Poly,
	polyIncrement int,
	width, height int,
) {
	size := width * height
	if size < 1 {
		*addresses = [MaxVoices]int{}
		return
	}

	for i := range addresses {
		col, row := xoff, yoff

		switch {
		case i < y.Channels:
			row = int(float32(row) + y.Voltages[i]/10*float32(height))
			if i < x.Channels {
				col += int(x.Voltages[i] / 10 * float32(width))
			}

			addresses[i] = width*row + col
		case i < x.Channels:
			col += int(x.Voltages[i] / 10 * float32(size-1))
			addresses[i] = width*row + col
		case i > 0:
			addresses[i] = (addresses[i-1] + polyIncrement) % size
		default:
			addresses[i] = width*row + col
		}

		if addresses[i] < 0 {
			addresses[i] = 0
		} else {
			addresses[i] %= size
		}
	}
}
