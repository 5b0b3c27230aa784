package main

import (
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/aceeric/imgmgr/impl/identity"
	"github.com/aceeric/imgmgr/mock"
)

// testRun has all the test params plus the state shared by the workers
type testRun struct {
	Config
	staging  string
	purposes []string
	failures atomic.Uint64
}

// runTests runs the test. The driver gradually increases the number of goroutines
// uploading archives until all workers are running concurrently. Then the goroutines
// are scaled down and the test is stopped.
func runTests(config Config) error {
	// staged next to the upload path so the final move is a rename on one file system
	staging, err := os.MkdirTemp(filepath.Dir(filepath.Clean(config.uploadPath)), "driver")
	if err != nil {
		return fmt.Errorf("unable to create a staging directory: %w", err)
	}
	defer os.RemoveAll(staging)

	tr := &testRun{
		Config:   config,
		staging:  staging,
		purposes: []string{"BMC", "Host", "System", "PSU", "Other"},
	}
	if tr.shuffle {
		rand.Shuffle(len(tr.purposes), func(i, j int) {
			tr.purposes[i], tr.purposes[j] = tr.purposes[j], tr.purposes[i]
		})
	}
	counters := make([]atomic.Uint64, tr.workers)
	ch := initStopChans(len(counters))
	tallyCh := make(chan bool)
	duration := time.Duration(tr.iterationSeconds) * time.Second

	go tallyStats(tallyCh, counters, time.Duration(tr.tallySeconds)*time.Second)

	// scale up
	for i := 0; i < len(counters); i++ {
		fmt.Printf("%s start worker #%d\n", time.Now().Format("2006-01-02 15:04:05"), i)
		go doTest(ch[i], tr, i, &counters[i])
		time.Sleep(duration)
	}
	// scale down
	for i := len(counters) - 1; i >= 0; i-- {
		fmt.Printf("%s stop worker #%d\n", time.Now().Format("2006-01-02 15:04:05"), i)
		ch[i] <- true
		if i != 0 {
			// no need to wait after stopping the last worker
			time.Sleep(duration)
		}
	}
	// shut down the tally channel
	tallyCh <- true

	total := uint64(0)
	for i := range counters {
		total += counters[i].Load()
	}
	fmt.Printf("ingested: %d failed: %d\n", total, tr.failures.Load())
	return nil
}

// doTest uploads archives with a unique version until signalled on the passed channel.
// It maintains a count of versions ingested in the passed atomic counter which is used
// by this goroutine AND the tallyStats goroutine.
func doTest(ch chan bool, tr *testRun, worker int, counter *atomic.Uint64) {
	client := &http.Client{Timeout: 10 * time.Second}
	for n := 0; ; n++ {
		select {
		case <-ch:
			return
		default:
		}
		ver := fmt.Sprintf("load-%d-%d-%d", os.Getpid(), worker, n)
		id, err := upload(tr, ver, tr.purposes[n%len(tr.purposes)])
		if err != nil {
			fmt.Println(err)
			tr.failures.Add(1)
			continue
		}
		if !waitForVersion(client, tr, id) {
			fmt.Printf("version %s (id %s) was not listed\n", ver, id)
			tr.failures.Add(1)
			continue
		}
		counter.Add(1)
		if tr.delete {
			if err := deleteVersion(client, tr, id); err != nil {
				fmt.Println(err)
			}
		}
	}
}

// upload creates an archive for the passed version in the staging directory then
// moves it into the upload directory. Returns the id the version will have.
func upload(tr *testRun, ver string, purpose string) (string, error) {
	archive, err := mock.MakeTarball(tr.staging, ver+".tar", mock.ImageFiles(ver, purpose))
	if err != nil {
		return "", fmt.Errorf("error creating archive for %s: %w", ver, err)
	}
	if err := os.Rename(archive, filepath.Join(tr.uploadPath, filepath.Base(archive))); err != nil {
		os.Remove(archive)
		return "", fmt.Errorf("error moving archive for %s: %w", ver, err)
	}
	return identity.ComputeId(ver), nil
}

// waitForVersion polls the REST API until the version is listed or the wait time
// elapses
func waitForVersion(client *http.Client, tr *testRun, id string) bool {
	deadline := time.Now().Add(time.Duration(tr.waitSeconds) * time.Second)
	for time.Now().Before(deadline) {
		resp, err := client.Get(tr.serverURL + "/versions/" + id)
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return true
			}
		}
		time.Sleep(50 * time.Millisecond)
	}
	return false
}

func deleteVersion(client *http.Client, tr *testRun, id string) error {
	req, err := http.NewRequest(http.MethodDelete, tr.serverURL+"/versions/"+id, nil)
	if err != nil {
		return err
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("delete %s returned %d", id, resp.StatusCode)
	}
	return nil
}

// tallyStats tallies the rate of ingests for all concurrent workers.
func tallyStats(ch chan bool, counters []atomic.Uint64, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	lastVals := getCounters(counters)
	lastTime := time.Now()
	for {
		select {
		case <-ch:
			return
		case t := <-ticker.C:
			curVals := getCounters(counters)
			elapsed := t.Sub(lastTime).Seconds()
			totVals := int64(0)
			for i := 0; i < len(curVals); i++ {
				totVals += curVals[i] - lastVals[i]
			}
			rate := float64(totVals) / elapsed
			fmt.Printf("%s\t%f\n", t.Format("2006-01-02 15:04:05"), rate)
			lastVals = curVals
			lastTime = time.Now()
		}
	}
}

// getCounters gets the current counter values for all workers.
func getCounters(counters []atomic.Uint64) []int64 {
	curVals := make([]int64, len(counters))
	for i := range counters {
		curVals[i] = int64(counters[i].Load())
	}
	return curVals
}

// initStopChans initializes the channels used to stop the worker goroutines.
func initStopChans(count int) []chan bool {
	ch := make([]chan bool, count)
	for i := 0; i < len(ch); i++ {
		ch[i] = make(chan bool)
	}
	return ch
}
