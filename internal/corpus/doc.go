// Package corpus discovers indexable source files under a root directory
// and watches them for changes. Discovery honors .gitignore and
// .coderagignore, skips binary files, and caps file size. The watcher
// applies the same rules and debounces event bursts into change batches.
package corpus
