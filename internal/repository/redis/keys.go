package redisrepo

import "fmt"

const ns = "cinebook:v1"

func KeySeatMap(showtimeID int64) string {
	return fmt.Sprintf("%s:showtime:%d:seatmap", ns, showtimeID)
}

func KeyShowtime(showtimeID int64) string {
	return fmt.Sprintf("%s:showtime:%d:summary", ns, showtimeID)
}

func KeyIdemBooking(userID int64, idemKey string) string {
	return fmt.Sprintf("%s:idem:bookings:%d:%s", ns, userID, idemKey)
}

func PrefixRateLimit(scope string) string {
	return fmt.Sprintf("%s:rl:%s", ns, scope)
}

func ChannelRealtime() string {
	return ns + ":realtime"
}
