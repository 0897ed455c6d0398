// Package enginetest provides test doubles for [claudeacp.Engine].
//
// [Engine] replays scripted event sequences so bridge behavior can be tested
// without a Claude binary. Each Start consumes the next [Script]; the
// returned [Run] delivers events over an unbuffered channel, so a test knows
// exactly how many events the consumer has taken.
//
// CLI backend compliance tests live in the clitest sub-package.
package enginetest
