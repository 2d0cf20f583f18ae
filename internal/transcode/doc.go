// Package transcode invokes the external proxy transcoder as a black-box
// subprocess behind the Transcoder capability interface. Presets pin the
// complete parameter set so a derivation is reproducible from its name, and
// a failed or timed-out run never leaves a partial output file behind.
package transcode
