package download

// Source describes one remote dataset to fetch into the cache.
type Source struct {
	URL       string
	Dataset   string
	Subfolder string
	Flatten   bool
}

// DefaultSources lists the third-party datasets the pipeline consumes.
func DefaultSources() []Source {
	return []Source{
		// Complete GBR reef and island feature boundaries (AIMS/TSRA/GBRMPA).
		{
			URL:     "https://nextcloud.eatlas.org.au/s/xQ8neGxxCbgWGSd/download/TS_AIMS_NESP_Torres_Strait_Features_V1b_with_GBR_Features.zip",
			Dataset: "GBR_AIMS_Complete-GBR-feat_V1b",
		},
		// Australian Coastline 50K 2024 (NESP MaC 3.17, AIMS). The Split
		// variant is used for clipping, Simp for overview maps.
		{
			URL:       "https://nextcloud.eatlas.org.au/s/DcGmpS3F5KZjgAG/download?path=%2FV1-1%2F&files=Split",
			Dataset:   "AU_AIMS_Coastline_50k_2024",
			Subfolder: "Split",
			Flatten:   true,
		},
		{
			URL:       "https://nextcloud.eatlas.org.au/s/DcGmpS3F5KZjgAG/download?path=%2FV1-1%2F&files=Simp",
			Dataset:   "AU_AIMS_Coastline_50k_2024",
			Subfolder: "Simp",
			Flatten:   true,
		},
		// Australian Marine Parks (DCCEEW).
		{
			URL:     "https://hub.arcgis.com/api/v3/datasets/2b3eb1d42b8d4319900cf4777f0a83b9_0/downloads/data?format=shp&spatialRefId=4283&where=1%3D1",
			Dataset: "AU_DCCEEW_Australia-Marine-Parks_2025",
		},
		// Global distribution of warm-water coral reefs (UNEP-WCMC v4.1).
		{
			URL:     "https://datadownload-production.s3.us-east-1.amazonaws.com/WCMC008_CoralReefs2021_v4_1.zip",
			Dataset: "World_WCMC_CoralReefs2021_v4_1",
			Flatten: true,
		},
		// Semi-automated shallow marine mask for northern Australia (AIMS).
		{
			URL:     "https://nextcloud.eatlas.org.au/s/iMrFB9WP9EpLPC2/download?path=%2FV1-1%2Fout%2Flow",
			Dataset: "AU_AIMS_Shallow-mask",
			Flatten: true,
		},
		// Semi-automated shallow intertidal rocky reefs (AIMS).
		{
			URL:     "https://nextcloud.eatlas.org.au/s/QD84aRGoKYs3KtP/download?path=%2FV1%2Fout",
			Dataset: "AU_AIMS_Rocky-reefs",
			Flatten: true,
		},
	}
}

// FetchAll downloads every source, stopping at the first failure.
func (d *Downloader) FetchAll(sources []Source) error {
	for _, s := range sources {
		if err := d.DownloadAndUnzip(s.URL, s.Dataset, s.Subfolder, s.Flatten); err != nil {
			return err
		}
	}
	return nil
}
