package util

import "sync"

// DoWorkList runs work on every item with at most maxConcurrent calls in flight and
// returns the results in input order. maxConcurrent <= 0 means no bound.
func DoWorkList[T any, R any](list []T, maxConcurrent int, work func(T) R) []R {
	results := make([]R, len(list))
	if maxConcurrent <= 0 || maxConcurrent > len(list) {
		maxConcurrent = len(list)
	}

	workerSem := make(chan struct{}, maxConcurrent)
	var wg sync.WaitGroup

	for i, item := range list {
		workerSem <- struct{}{}
		wg.Add(1)
		go func(index int, value T) {
			defer func() {
				<-workerSem
				wg.Done()
			}()
			results[index] = work(value)
		}(i, item)
	}

	wg.Wait()
	return results
}
