// Copyright 2025 Kadir Pekel
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package agent

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Task is one unit of scheduled work: a task submitted to a named thread.
type Task struct {
	ThreadID string
	Input    string
}

// TaskResult pairs a Task with its outcome.
type TaskResult struct {
	Task
	Result string
	Err    error
}

// Scheduler fans a batch of Submit calls out across a bounded worker pool
// (§5 "a cooperative single-task-per-thread model running atop a parallel
// worker pool"): tasks run concurrently up to maxWorkers. RunAll does not
// serialize tasks that share a thread id, so a batch holds at most one
// task per thread.
type Scheduler struct {
	agent      *Agent
	maxWorkers int
}

// NewScheduler binds a Scheduler to agent with a worker cap. A cap <= 0
// means unbounded (errgroup.SetLimit(-1)).
func NewScheduler(a *Agent, maxWorkers int) *Scheduler {
	if maxWorkers <= 0 {
		maxWorkers = -1
	}
	return &Scheduler{agent: a, maxWorkers: maxWorkers}
}

// RunAll submits every task concurrently (subject to the worker cap) and
// waits for all of them to finish. A single task's failure is captured in
// its TaskResult.Err rather than aborting the batch — one thread's LM or
// tool failure must never take down sibling threads' in-flight work.
func (s *Scheduler) RunAll(ctx context.Context, tasks []Task) []TaskResult {
	results := make([]TaskResult, len(tasks))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.maxWorkers)

	for i, t := range tasks {
		i, t := i, t
		g.Go(func() error {
			result, err := s.agent.Submit(gctx, t.ThreadID, t.Input)
			results[i] = TaskResult{Task: t, Result: result, Err: err}
			return nil // never abort sibling tasks on one failure
		})
	}
	_ = g.Wait()

	return results
}
