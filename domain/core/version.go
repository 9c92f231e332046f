package core

// Version identifies the estimation code for replay fingerprints. Bump it
// whenever a change can alter the draws produced from identical inputs.
const Version = "0.1.0"
