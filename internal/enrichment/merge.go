package enrichment

// Mode selects how Merge treats fields the record already has.
type Mode int

// Merge modes.
const (
	// ModeFull writes every non-empty incoming field.
	ModeFull Mode = iota
	// ModeSupplement writes a field only when the record lacks it. Genres
	// and tags are also replaced when the incoming provenance outranks the
	// stored one.
	ModeSupplement
)

// Merge writes the incoming fields into rec and records each written
// field's source. It returns the names of the fields written, in a fixed
// order. In both modes a genre list only replaces a non-empty stored list
// when its provenance is strictly higher.
func Merge(rec *Record, in *Resolved, mode Mode) []string {
	if in == nil {
		return nil
	}
	if rec.Sources == nil {
		rec.Sources = map[string]string{}
	}

	var added []string
	write := func(field string) {
		added = append(added, field)
		src := in.Sources[field]
		if src == "" {
			src = "unknown"
		}
		rec.Sources[field] = src
	}
	full := mode == ModeFull

	if in.AlbumTitle != "" && (full || rec.AlbumTitle == "") {
		rec.AlbumTitle = in.AlbumTitle
		write(FieldAlbumTitle)
	}
	if in.ReleaseYear > 0 && (full || rec.ReleaseYear == 0) {
		rec.ReleaseYear = in.ReleaseYear
		write(FieldReleaseYear)
	}
	if in.ReleaseType != "" && (full || rec.ReleaseType == "") {
		rec.ReleaseType = in.ReleaseType
		write(FieldReleaseType)
	}
	if !in.Artwork.Empty() && (full || rec.Artwork.Empty()) {
		rec.Artwork = in.Artwork
		write(FieldArtwork)
	}
	if in.ArtistCountry != "" && (full || rec.ArtistCountry == "") {
		rec.ArtistCountry = in.ArtistCountry
		write(FieldArtistCountry)
	}
	if in.ArtistType != "" && (full || rec.ArtistType == "") {
		rec.ArtistType = in.ArtistType
		write(FieldArtistType)
	}
	if in.RecordLabel != "" && (full || rec.RecordLabel == "") {
		rec.RecordLabel = in.RecordLabel
		write(FieldRecordLabel)
	}

	outranks := in.GenreSource > rec.GenreSource
	if len(in.Tags) > 0 && (full || len(rec.Tags) == 0 || outranks) {
		rec.Tags = append([]string(nil), in.Tags...)
		write(FieldTags)
	}
	if len(in.Genres) > 0 && (len(rec.Genres) == 0 || outranks) {
		rec.Genres = append([]string(nil), in.Genres...)
		rec.GenreSource = in.GenreSource
		write(FieldGenres)
	}

	if in.MBRecordingID != "" && (full || rec.MBRecordingID == "") {
		rec.MBRecordingID = in.MBRecordingID
		write(FieldMBRecordingID)
	}
	if in.MBReleaseID != "" && (full || rec.MBReleaseID == "") {
		rec.MBReleaseID = in.MBReleaseID
		write(FieldMBReleaseID)
	}
	if in.MBArtistID != "" && (full || rec.MBArtistID == "") {
		rec.MBArtistID = in.MBArtistID
		write(FieldMBArtistID)
	}
	if in.SpotifyID != "" && (full || rec.SpotifyID == "") {
		rec.SpotifyID = in.SpotifyID
		write(FieldSpotifyID)
	}
	if in.DeezerID != "" && (full || rec.DeezerID == "") {
		rec.DeezerID = in.DeezerID
		write(FieldDeezerID)
	}
	if in.Features != nil && (full || rec.AudioFeatures == nil) {
		f := *in.Features
		rec.AudioFeatures = &f
		rec.FeaturesSource = in.FeaturesSource
		write(FieldAudioFeatures)
	}
	return added
}

// resolvedFromRecord turns a stored record into merge input with every
// field attributed to source.
func resolvedFromRecord(r *Record, source string) *Resolved {
	in := &Resolved{
		AlbumTitle:     r.AlbumTitle,
		ReleaseYear:    r.ReleaseYear,
		ReleaseType:    r.ReleaseType,
		Artwork:        r.Artwork,
		ArtistCountry:  r.ArtistCountry,
		ArtistType:     r.ArtistType,
		RecordLabel:    r.RecordLabel,
		Tags:           append([]string(nil), r.Tags...),
		Genres:         append([]string(nil), r.Genres...),
		GenreSource:    r.GenreSource,
		MBRecordingID:  r.MBRecordingID,
		MBReleaseID:    r.MBReleaseID,
		MBArtistID:     r.MBArtistID,
		SpotifyID:      r.SpotifyID,
		DeezerID:       r.DeezerID,
		FeaturesSource: r.FeaturesSource,
		Sources:        map[string]string{},
	}
	if r.AudioFeatures != nil {
		f := *r.AudioFeatures
		in.Features = &f
	}
	for _, field := range []string{
		FieldAlbumTitle, FieldReleaseYear, FieldReleaseType, FieldArtwork,
		FieldArtistCountry, FieldArtistType, FieldRecordLabel, FieldTags, FieldGenres,
		FieldMBRecordingID, FieldMBReleaseID, FieldMBArtistID, FieldSpotifyID, FieldDeezerID,
		FieldAudioFeatures,
	} {
		in.Sources[field] = source
	}
	return in
}
