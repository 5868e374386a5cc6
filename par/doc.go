// Package par provides parallel combinators built on scope and its
// built-in joiners. Every combinator forks into a scope and joins it;
// none carries scheduling logic of its own, so the scope's guarantees
// (losers cancelled, no leaked work, deterministic result ordering)
// hold uniformly.
package par
