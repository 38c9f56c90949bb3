package main

import (
	"fmt"
	"os"

	"github.com/grailbio/base/log"
	"github.com/grailbio/keep/repartition"
)

// logResult appends one CSV row to the path named by KEEP_LOG, if set:
// seeks, peak memory (bytes), read time (s), write time (s), elapsed
// time (s). A logging collaborator only; it shares no state with the
// scheduler beyond the Result it was handed.
func logResult(res repartition.Result) {
	path := os.Getenv("KEEP_LOG")
	if path == "" {
		return
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		log.Error.Printf("repartition: could not open KEEP_LOG %s: %v", path, err)
		return
	}
	defer f.Close()
	row := fmt.Sprintf("%d,%d,%.6f,%.6f,%.6f\n",
		res.Seeks, res.PeakMem,
		res.ReadTime.Seconds(), res.WriteTime.Seconds(), res.Elapsed.Seconds())
	if _, err := f.WriteString(row); err != nil {
		log.Error.Printf("repartition: writing KEEP_LOG row: %v", err)
	}
}
