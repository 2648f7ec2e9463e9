// Package sifacc contains the core components of Sif's shared accumulators: values which
// many workers update locally, and which are merged into a single authoritative copy on the
// driver. This root package defines the Value, Accumulator, MergeStrategy and TaskContext
// types. Built-in strategies live in the accumulators package, the driver-side registry in
// the registry package, and the network service which receives worker updates in the
// cluster package.
package sifacc
