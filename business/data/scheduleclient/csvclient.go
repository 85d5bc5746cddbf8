package scheduleclient

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/pkg/errors"

	"github.com/OpenTransitTools/kirin/business/data/rtmodel"
)

// StopTimeCSV is one stop_times.txt-shaped row; its arrival_time and
// departure_time are read as UTC times of day. Field names/tags follow
// tidbyt-gtfs/parse/stop_times.go's StopTimeCSV.
type StopTimeCSV struct {
	TripID        string `csv:"trip_id"`
	StopID        string `csv:"stop_id"`
	StopSequence  int    `csv:"stop_sequence"`
	ArrivalTime   string `csv:"arrival_time"`
	DepartureTime string `csv:"departure_time"`
}

// CSVClient answers GetVehicleJourney from a static CSV file kept
// entirely in memory, for tests and single-file replay via kirinctl.
type CSVClient struct {
	byTrip map[string][]StopTimeCSV
}

// LoadCSV parses a stop_times.txt-shaped CSV (via gocsv, matching the
// teacher pack's parsing idiom) into a CSVClient.
func LoadCSV(r io.Reader) (*CSVClient, error) {
	var rows []StopTimeCSV
	if err := gocsv.Unmarshal(r, &rows); err != nil {
		return nil, errors.Wrap(err, "parsing stop_times csv")
	}

	byTrip := make(map[string][]StopTimeCSV)
	for _, row := range rows {
		byTrip[row.TripID] = append(byTrip[row.TripID], row)
	}
	return &CSVClient{byTrip: byTrip}, nil
}

func (c *CSVClient) GetVehicleJourney(_ context.Context, tripID string, date time.Time) (*rtmodel.VehicleJourney, error) {
	rows, ok := c.byTrip[tripID]
	if !ok {
		return nil, fmt.Errorf("no theoretical vehicle journey for trip %q", tripID)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].StopSequence < rows[j].StopSequence })

	sts := make([]rtmodel.StopTime, 0, len(rows))
	for _, row := range rows {
		arr, err := parseGTFSTime(row.ArrivalTime)
		if err != nil {
			return nil, errors.Wrapf(err, "trip %q stop %q arrival_time", tripID, row.StopID)
		}
		dep, err := parseGTFSTime(row.DepartureTime)
		if err != nil {
			return nil, errors.Wrapf(err, "trip %q stop %q departure_time", tripID, row.StopID)
		}
		sts = append(sts, rtmodel.StopTime{
			StopPoint:        rtmodel.StopPoint{ID: row.StopID},
			UTCArrivalTime:   arr,
			UTCDepartureTime: dep,
		})
	}

	return &rtmodel.VehicleJourney{
		NavitiaTripID:      tripID,
		StopTimes:          sts,
		UTCCirculationDate: time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC),
	}, nil
}

// parseGTFSTime parses a GTFS "HH:MM:SS" time-of-day, where HH may
// exceed 23 to represent service past midnight, into a duration since
// midnight.
func parseGTFSTime(s string) (*time.Duration, error) {
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ":")
	if len(parts) != 3 {
		return nil, fmt.Errorf("malformed time %q", s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil {
		return nil, fmt.Errorf("malformed hour in %q", s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil {
		return nil, fmt.Errorf("malformed minute in %q", s)
	}
	sec, err := strconv.Atoi(parts[2])
	if err != nil {
		return nil, fmt.Errorf("malformed second in %q", s)
	}
	d := time.Duration(h)*time.Hour + time.Duration(m)*time.Minute + time.Duration(sec)*time.Second
	return &d, nil
}
