// Package ire decodes the IRE XML real-time feed format into the
// TripUpdates the merge engine operates on. The original Kirin project
// ships an IRE connector alongside its gtfs-rt one (referenced in
// original_source's handler/tests, trimmed from the distilled source);
// this is a from-scratch Go implementation, grounded on
// theoremus-urban-solutions-netex-validator's use of antchfx/xmlquery
// (validation/ids/extractor.go's Parse + Find + SelectAttr/InnerText
// idiom) since the pack's only XML-capable library is xmlquery/xpath.
package ire

import (
	"bytes"
	"fmt"
	"strconv"
	"time"

	"github.com/antchfx/xmlquery"

	"github.com/OpenTransitTools/kirin/business/data/rtmodel"
)

// Name is this connector's dispatch key.
const Name = "ire"

// Decode parses an IRE <LEGIFRANCE>-style train-circulation document:
//
//	<circulation trip_id="..." date="20120615">
//	  <stop id="..." order="0" arrival_delay="60" departure_delay="60" status="update"/>
//	  ...
//	</circulation>
func Decode(raw []byte) ([]*rtmodel.TripUpdate, error) {
	doc, err := xmlquery.Parse(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("invalid ire xml: %w", err)
	}

	var updates []*rtmodel.TripUpdate
	for _, circ := range xmlquery.Find(doc, "//circulation") {
		tu, err := decodeCirculation(circ)
		if err != nil {
			return nil, err
		}
		updates = append(updates, tu)
	}
	return updates, nil
}

func decodeCirculation(circ *xmlquery.Node) (*rtmodel.TripUpdate, error) {
	tripID := circ.SelectAttr("trip_id")
	if tripID == "" {
		return nil, fmt.Errorf("circulation element missing trip_id")
	}

	date, err := time.Parse("20060102", circ.SelectAttr("date"))
	if err != nil {
		return nil, fmt.Errorf("circulation %q: invalid date: %w", tripID, err)
	}

	status := rtmodel.Update
	if circ.SelectAttr("status") == "delete" {
		status = rtmodel.Delete
	}

	var stus []*rtmodel.StopTimeUpdate
	for _, stop := range xmlquery.Find(circ, "stop") {
		stu, err := decodeStop(stop)
		if err != nil {
			return nil, fmt.Errorf("circulation %q: %w", tripID, err)
		}
		stus = append(stus, stu)
	}

	return &rtmodel.TripUpdate{
		VJ:              &rtmodel.VehicleJourney{NavitiaTripID: tripID, UTCCirculationDate: date},
		StartTimestamp:  date.Unix(),
		Status:          status,
		StopTimeUpdates: stus,
	}, nil
}

func decodeStop(stop *xmlquery.Node) (*rtmodel.StopTimeUpdate, error) {
	stopID := stop.SelectAttr("id")
	if stopID == "" {
		return nil, fmt.Errorf("stop element missing id")
	}
	order, err := strconv.Atoi(stop.SelectAttr("order"))
	if err != nil {
		return nil, fmt.Errorf("stop %q: invalid order: %w", stopID, err)
	}

	status := rtmodel.ModificationType(stop.SelectAttr("status"))
	if status == "" {
		status = rtmodel.Update
	}

	stu := &rtmodel.StopTimeUpdate{
		NavitiaStop:     rtmodel.StopPoint{ID: stopID},
		Order:           order,
		ArrivalStatus:   status,
		DepartureStatus: status,
	}

	if d, ok := parseSecondsAttr(stop, "arrival_delay"); ok {
		stu.ArrivalDelay = &d
	}
	if d, ok := parseSecondsAttr(stop, "departure_delay"); ok {
		stu.DepartureDelay = &d
	}
	return stu, nil
}

func parseSecondsAttr(node *xmlquery.Node, attr string) (time.Duration, bool) {
	v := node.SelectAttr(attr)
	if v == "" {
		return 0, false
	}
	seconds, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return time.Duration(seconds) * time.Second, true
}
