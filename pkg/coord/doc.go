// Package coord models Maven package coordinates.
//
// A [Coordinate] names one artifact file: group, artifact, version, an
// optional classifier, the packaging type (jar or pom), an optional snapshot
// qualifier and an optional declared digest. Coordinates derive every name
// the rest of depfetch needs:
//
//	c := coord.MustParse("com.google.guava:guava:33.0.0-jre")
//	c.FileName()       // "guava-33.0.0-jre.jar"
//	c.HashFileName()   // "guava-33.0.0-jre.jar.md5"
//	c.RemotePath()     // "com/google/guava/guava/33.0.0-jre/guava-33.0.0-jre.jar"
//	c.POM().FileName() // "guava-33.0.0-jre.pom"
//
// # Identity
//
// Two coordinates are equal when group, artifact, version, classifier and
// snapshot qualifier match. The declared hash and algorithm are verification
// details and are ignored by [Coordinate.Key] and [Coordinate.Equal].
//
// # Scopes
//
// Jar coordinates carry a [Scope]. Only [ScopeCompile] and [ScopeRuntime]
// must be downloaded; the others are recorded but not fetched.
package coord
