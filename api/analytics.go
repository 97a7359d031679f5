package api

import (
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/rachealA924/Team-6-Taxi-App/models"
)

const storeTimeLayout = "2006-01-02 15:04:05"

var filterTimeLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// tripFilter accumulates WHERE clauses from query parameters.
type tripFilter struct {
	clauses []string
	args    []interface{}
}

func (f *tripFilter) add(clause string, arg interface{}) {
	f.clauses = append(f.clauses, clause)
	f.args = append(f.args, arg)
}

func (f *tripFilter) where() string {
	if len(f.clauses) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(f.clauses, " AND ")
}

func parseFilterTime(value string) (time.Time, error) {
	for _, layout := range filterTimeLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unsupported datetime %q", value)
}

// parseDateRange reads the startDate/endDate parameters shared by every
// analytics endpoint.
func parseDateRange(c *gin.Context, f *tripFilter) error {
	if v := c.Query("startDate"); v != "" {
		t, err := parseFilterTime(v)
		if err != nil {
			return fmt.Errorf("invalid startDate: %w", err)
		}
		f.add("pickup_datetime >= ?", t.Format(storeTimeLayout))
	}
	if v := c.Query("endDate"); v != "" {
		t, err := parseFilterTime(v)
		if err != nil {
			return fmt.Errorf("invalid endDate: %w", err)
		}
		f.add("pickup_datetime <= ?", t.Format(storeTimeLayout))
	}
	return nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// handleTripStats aggregates fares, durations and distances over the
// filtered trips.
func (s *Server) handleTripStats(c *gin.Context) {
	filter := &tripFilter{}
	if err := parseDateRange(c, filter); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if v := c.Query("passengerCount"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid passengerCount"})
			return
		}
		filter.add("passenger_count = ?", n)
	}

	query := `SELECT
		COUNT(*),
		COALESCE(AVG(fare_amount), 0),
		COALESCE(AVG(trip_duration), 0),
		COALESCE(AVG(trip_distance), 0),
		COALESCE(SUM(total_amount), 0),
		COALESCE(AVG(tip_amount), 0),
		COALESCE(MIN(fare_amount), 0),
		COALESCE(MAX(fare_amount), 0),
		COALESCE(MIN(trip_distance), 0),
		COALESCE(MAX(trip_distance), 0)
	FROM trips` + filter.where()

	var (
		totalTrips                       int64
		avgFare, avgDuration, avgDist    float64
		totalRevenue, avgTip             float64
		minFare, maxFare, minDist, maxDist float64
	)
	err := s.db.QueryRowContext(c.Request.Context(), query, filter.args...).Scan(
		&totalTrips, &avgFare, &avgDuration, &avgDist,
		&totalRevenue, &avgTip, &minFare, &maxFare, &minDist, &maxDist,
	)
	if err != nil {
		s.log.WithComponent("api_server").WithError(err).Error("trip stats query failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to compute trip stats"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"totalTrips":   totalTrips,
		"avgFare":      round2(avgFare),
		"avgDuration":  round2(avgDuration),
		"avgDistance":  round2(avgDist),
		"totalRevenue": round2(totalRevenue),
		"avgTip":       round2(avgTip),
		"minFare":      minFare,
		"maxFare":      maxFare,
		"minDistance":  minDist,
		"maxDistance":  maxDist,
	})
}

// handleHourlyPatterns buckets trips by pickup hour. Every hour of the day
// appears in the response, empty ones included.
func (s *Server) handleHourlyPatterns(c *gin.Context) {
	filter := &tripFilter{}
	if err := parseDateRange(c, filter); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	query := `SELECT
		CAST(strftime('%H', pickup_datetime) AS INTEGER) AS hour,
		COUNT(*),
		COALESCE(AVG(fare_amount), 0),
		COALESCE(AVG(trip_duration), 0),
		COALESCE(AVG(trip_distance), 0)
	FROM trips` + filter.where() + ` GROUP BY hour`

	rows, err := s.db.QueryContext(c.Request.Context(), query, filter.args...)
	if err != nil {
		s.log.WithComponent("api_server").WithError(err).Error("hourly patterns query failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to compute hourly patterns"})
		return
	}
	defer rows.Close()

	type hourBucket struct {
		count                        int64
		avgFare, avgDuration, avgDist float64
	}
	buckets := make(map[int]hourBucket)
	for rows.Next() {
		var hour int
		var b hourBucket
		if err := rows.Scan(&hour, &b.count, &b.avgFare, &b.avgDuration, &b.avgDist); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read hourly patterns"})
			return
		}
		buckets[hour] = b
	}
	if err := rows.Err(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read hourly patterns"})
		return
	}

	result := make([]gin.H, 0, 24)
	for hour := 0; hour < 24; hour++ {
		b := buckets[hour]
		result = append(result, gin.H{
			"hour":        hour,
			"count":       b.count,
			"avgFare":     round2(b.avgFare),
			"avgDuration": round2(b.avgDuration),
			"avgDistance": round2(b.avgDist),
		})
	}
	c.JSON(http.StatusOK, result)
}

// handlePaymentTypes breaks the filtered trips down by payment code.
func (s *Server) handlePaymentTypes(c *gin.Context) {
	filter := &tripFilter{}
	if err := parseDateRange(c, filter); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	query := `SELECT
		payment_type,
		COUNT(*),
		COALESCE(AVG(fare_amount), 0),
		COALESCE(AVG(tip_amount), 0)
	FROM trips` + filter.where() + ` GROUP BY payment_type ORDER BY payment_type`

	rows, err := s.db.QueryContext(c.Request.Context(), query, filter.args...)
	if err != nil {
		s.log.WithComponent("api_server").WithError(err).Error("payment types query failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to compute payment breakdown"})
		return
	}
	defer rows.Close()

	result := make([]gin.H, 0, 6)
	for rows.Next() {
		var paymentType int
		var count int64
		var avgFare, avgTip float64
		if err := rows.Scan(&paymentType, &count, &avgFare, &avgTip); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read payment breakdown"})
			return
		}
		name, ok := models.PaymentTypeNames[paymentType]
		if !ok {
			name = "Unknown"
		}
		result = append(result, gin.H{
			"paymentType": name,
			"count":       count,
			"avgFare":     round2(avgFare),
			"avgTip":      round2(avgTip),
		})
	}
	if err := rows.Err(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read payment breakdown"})
		return
	}
	c.JSON(http.StatusOK, result)
}

// sortColumns whitelists the sortable trip listing columns.
var sortColumns = map[string]bool{
	"pickup_datetime": true,
	"fare_amount":     true,
	"trip_distance":   true,
	"trip_duration":   true,
	"trip_speed_mph":  true,
	"fare_per_mile":   true,
	"tip_percentage":  true,
}

// handleTrips lists trips with filtering, sorting and pagination.
func (s *Server) handleTrips(c *gin.Context) {
	filter := &tripFilter{}
	if err := parseDateRange(c, filter); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if v := c.Query("passengerCount"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid passengerCount"})
			return
		}
		filter.add("passenger_count = ?", n)
	}
	rangeParams := []struct {
		param  string
		clause string
	}{
		{"minFare", "fare_amount >= ?"},
		{"maxFare", "fare_amount <= ?"},
		{"minDistance", "trip_distance >= ?"},
		{"maxDistance", "trip_distance <= ?"},
	}
	for _, rp := range rangeParams {
		if v := c.Query(rp.param); v != "" {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + rp.param})
				return
			}
			filter.add(rp.clause, f)
		}
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	if page < 1 {
		page = 1
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if limit < 1 || limit > 500 {
		limit = 20
	}

	sortCol := c.DefaultQuery("sort", "pickup_datetime")
	if !sortColumns[sortCol] {
		sortCol = "pickup_datetime"
	}
	order := "DESC"
	if c.DefaultQuery("order", "desc") == "asc" {
		order = "ASC"
	}

	var total int64
	countQuery := `SELECT COUNT(*) FROM trips` + filter.where()
	if err := s.db.QueryRowContext(c.Request.Context(), countQuery, filter.args...).Scan(&total); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to count trips"})
		return
	}

	query := fmt.Sprintf(`SELECT
		id, pickup_datetime, dropoff_datetime, passenger_count,
		trip_distance, trip_duration, fare_amount, tip_amount, total_amount,
		payment_type, trip_speed_mph, fare_per_mile, idle_time_minutes, tip_percentage
	FROM trips%s ORDER BY %s %s LIMIT ? OFFSET ?`, filter.where(), sortCol, order)

	args := append(append([]interface{}{}, filter.args...), limit, (page-1)*limit)
	rows, err := s.db.QueryContext(c.Request.Context(), query, args...)
	if err != nil {
		s.log.WithComponent("api_server").WithError(err).Error("trip listing query failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list trips"})
		return
	}
	defer rows.Close()

	trips := make([]gin.H, 0, limit)
	for rows.Next() {
		var (
			id                              int64
			pickup, dropoff                 string
			passengers, paymentType         int
			distance, fare, tip, total      float64
			duration                        int64
			speed, perMile, idle, tipPct    float64
		)
		if err := rows.Scan(&id, &pickup, &dropoff, &passengers, &distance, &duration,
			&fare, &tip, &total, &paymentType, &speed, &perMile, &idle, &tipPct); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read trips"})
			return
		}
		trips = append(trips, gin.H{
			"id":              id,
			"pickupDatetime":  pickup,
			"dropoffDatetime": dropoff,
			"passengerCount":  passengers,
			"tripDistance":    distance,
			"tripDuration":    duration,
			"fareAmount":      fare,
			"tipAmount":       tip,
			"totalAmount":     total,
			"paymentType":     paymentType,
			"tripSpeedMph":    round2(speed),
			"farePerMile":     round2(perMile),
			"idleTimeMinutes": round2(idle),
			"tipPercentage":   round2(tipPct),
		})
	}
	if err := rows.Err(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read trips"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"trips": trips,
		"pagination": gin.H{
			"page":       page,
			"limit":      limit,
			"totalCount": total,
			"totalPages": (total + int64(limit) - 1) / int64(limit),
		},
	})
}
