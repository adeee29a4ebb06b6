// Package plan turns cue matches into an ordered list of media operations.
//
// A Plan built for the search strategies is expressed in source media time:
// Copy ops name source ranges and Freeze ops hold a source frame. A Plan
// built for the cumulative strategy is iterative: each Trim or Freeze is
// positioned in the media as edited by every earlier op, so it can only be
// executed one op at a time against the previous result.
package plan
