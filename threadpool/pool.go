/*
Copyright (C) 2026  Carl-Philip Hänsch

	This program is free software: you can redistribute it and/or modify
	it under the terms of the GNU General Public License as published by
	the Free Software Foundation, either version 3 of the License, or
	(at your option) any later version.

	This program is distributed in the hope that it will be useful,
	but WITHOUT ANY WARRANTY; without even the implied warranty of
	MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
	GNU General Public License for more details.

	You should have received a copy of the GNU General Public License
	along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/

// Package threadpool implements C10: a common pool contract with two
// implementations trading task-panic resilience for throughput. Engine
// correctness never depends on which variant the server is built with.
package threadpool

import "errors"

// ErrPoolSize is returned by NewGuardedPool and NewStealingPool when n <= 0.
var ErrPoolSize = errors.New("threadpool: pool size must be > 0")

// Task is a one-shot, owns-its-captures unit of work.
type Task func()

// Pool is the contract both variants satisfy.
type Pool interface {
	// Spawn submits task for execution. It may block if the pool applies
	// backpressure, but never silently drops work.
	Spawn(task Task) error
	// Close signals end-of-stream and waits for in-flight and queued
	// tasks to finish before returning.
	Close()
}
