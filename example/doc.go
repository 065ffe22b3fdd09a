/*
Package main contains a command-line bridge built on gxbridge.

The example shows how to:
  - configure the bridge from command-line flags or an XML settings file
  - log traces, errors and state changes with zap
  - stop the bridge with Ctrl+C
*/
package main
