package core

// Distribute converts bracket counts into whole percentages.
//
// Each share is rounded half up: (200*count + total) / (2*total). Rounding
// can leave the sum at 99 or 101; the difference is added to the first
// bracket holding the largest percentage, in the order <20, 20-40, 40-60,
// >60. An empty dataset gives all zeros.
func Distribute(c AgeCounts) AgeDistribution {
	var d AgeDistribution
	if c.Total <= 0 {
		return d
	}

	for _, b := range Brackets {
		d.add(b, int((200*c.Count(b)+c.Total)/(2*c.Total)))
	}

	sum := d.Sum()
	if sum == 100 || sum <= 0 {
		return d
	}

	largest := Brackets[0]
	for _, b := range Brackets[1:] {
		if d.Percent(b) > d.Percent(largest) {
			largest = b
		}
	}
	d.add(largest, 100-sum)

	return d
}
