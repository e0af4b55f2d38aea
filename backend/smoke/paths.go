package smoke

import "strconv"

func itoa(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}

func coursePath(id uint, suffix string) string {
	return "/api/courses/" + itoa(id) + suffix
}
