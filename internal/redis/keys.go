package redisx

import "fmt"

const ns = "arena:v1"

func KeyAvailability(courtID, date string) string {
	return fmt.Sprintf("%s:availability:%s:%s", ns, courtID, date)
}

func KeyCourts() string {
	return ns + ":courts"
}

func KeyRevenue(from, to string) string {
	return fmt.Sprintf("%s:revenue:%s:%s", ns, from, to)
}

func ChannelAvailabilityChanged() string {
	return ns + ":availability:changed"
}
