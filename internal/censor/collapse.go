// SPDX-License-Identifier: MIT

package censor

// Duplicated-character tolerance. A stretched word like "heyyyyy" or
// "qqwwweeeerrrrrttttttyyyyyyy" qualifies if some collapse of its repeated
// runs is whitelisted. Runs are collapsed to one or two characters; no
// whitelist entry repeats a letter more than twice.

const maxCollapseRuns = 16

type charRun struct {
	ch byte
	n  int
}

// collapsedWhitelisted reports whether any run-collapsed variant of word is
// whitelisted. word must already be lowercased ASCII.
func collapsedWhitelisted(l Lists, word string) bool {
	runs := make([]charRun, 0, len(word))
	stretched := false
	for i := 0; i < len(word); i++ {
		if len(runs) > 0 && runs[len(runs)-1].ch == word[i] {
			runs[len(runs)-1].n++
			stretched = true
			continue
		}
		runs = append(runs, charRun{ch: word[i], n: 1})
	}
	if !stretched || len(runs) > maxCollapseRuns {
		return false
	}
	return tryCollapse(l, runs, make([]byte, 0, len(word)))
}

func tryCollapse(l Lists, runs []charRun, prefix []byte) bool {
	if len(runs) == 0 {
		return l.Whitelisted(string(prefix))
	}
	run, rest := runs[0], runs[1:]
	keep := 2
	if run.n < keep {
		keep = run.n
	}
	for count := 1; count <= keep; count++ {
		next := prefix
		for i := 0; i < count; i++ {
			next = append(next, run.ch)
		}
		if tryCollapse(l, rest, next) {
			return true
		}
		prefix = next[:len(prefix)]
	}
	return false
}
