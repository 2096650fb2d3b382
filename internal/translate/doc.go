// Package translate turns review text into another language.
//
// The only backend is an OpenAI-compatible chat completion endpoint, which
// covers OpenAI itself and the many self-hosted gateways speaking the same
// protocol. Results are memoised in memory because reviews of popular
// applications repeat the same short texts ("Great app", "Doesn't work")
// thousands of times.
package translate
