// Command routecheck audits a routes CSV against a factories CSV for
// completeness before a dispatch run: every ordered factory pair must have
// an edge, distances/times should be symmetric, and no self-loop should
// carry nonzero distance (SPEC_FULL.md §10.7). It is adapted from the
// teacher's tools/recompute_distances.go, which rewrote a route file's
// segment distances in place; routecheck instead only reads and reports,
// sharing the model/loader packages rather than duplicating parsing
// structs the way the teacher's standalone tool did.
package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/jwmdev/dpdptw-sim/loader"
	"github.com/jwmdev/dpdptw-sim/model"
)

func main() {
	if len(os.Args) != 3 {
		fmt.Fprintln(os.Stderr, "usage: routecheck <routes.csv> <factories.csv>")
		os.Exit(2)
	}
	log := logrus.New()

	rt, err := loader.LoadRoutes(os.Args[1])
	if err != nil {
		log.WithError(err).Fatal("failed to load routes")
	}
	factories, err := loader.LoadFactories(os.Args[2])
	if err != nil {
		log.WithError(err).Fatal("failed to load factories")
	}

	ids := make([]int, 0, len(factories))
	for _, f := range factories {
		ids = append(ids, f.ID)
	}

	problems := 0

	missing := rt.MissingPairs(ids)
	for _, pair := range missing {
		log.WithFields(logrus.Fields{"from": pair[0], "to": pair[1]}).Error("missing route edge")
		problems++
	}

	problems += checkSymmetry(rt, ids, log)
	problems += checkSelfLoops(rt, ids, log)

	if problems > 0 {
		log.WithField("problems", problems).Error("route table audit failed")
		os.Exit(1)
	}
	log.WithField("factories", len(ids)).Info("route table audit passed: dense and symmetric")
}

func checkSymmetry(rt *model.RouteTable, ids []int, log *logrus.Logger) int {
	problems := 0
	for _, a := range ids {
		for _, b := range ids {
			if a == b {
				continue
			}
			dAB, errAB := rt.Distance(a, b)
			dBA, errBA := rt.Distance(b, a)
			if errAB != nil || errBA != nil {
				continue // already reported as missing
			}
			if dAB != dBA {
				log.WithFields(logrus.Fields{"a": a, "b": b, "dist_ab": dAB, "dist_ba": dBA}).Warn("asymmetric distance")
				problems++
			}
			tAB, _ := rt.Time(a, b)
			tBA, _ := rt.Time(b, a)
			if tAB != tBA {
				log.WithFields(logrus.Fields{"a": a, "b": b, "time_ab": tAB, "time_ba": tBA}).Warn("asymmetric time")
				problems++
			}
		}
	}
	return problems
}

func checkSelfLoops(rt *model.RouteTable, ids []int, log *logrus.Logger) int {
	problems := 0
	for _, a := range ids {
		if d, err := rt.Distance(a, a); err == nil && d != 0 {
			log.WithFields(logrus.Fields{"factory": a, "distance": d}).Error("self-loop with nonzero distance")
			problems++
		}
	}
	return problems
}
