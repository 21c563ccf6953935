// Package build turns a site configuration and its docs directory into a
// static site. A build runs a fixed sequence of stages against a staging
// directory that replaces the output directory only when every stage
// succeeded; the outcome of each stage and of the build as a whole is captured
// in a BuildReport.
package build
