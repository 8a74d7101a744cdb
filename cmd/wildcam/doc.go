// Command wildcam runs the wildlife trigger-capture daemon and its tooling.
//
// "wildcam daemon" subscribes to the trigger topic and records, classifies,
// logs, and announces each admitted trigger. The remaining commands inspect
// and exercise a deployment: the capture log, the viewer, preflight status,
// configuration, and test triggers and notifications.
package main
