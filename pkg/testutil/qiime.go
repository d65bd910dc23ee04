package testutil

import "fmt"

// Identifiers of the canonical fixture history shared across test suites:
// an imported feature table, rarefied by feature-table rarefy, then
// rendered by diversity beta_rarefaction.
const (
	FixtureVizUUID    = "ffb7cee3-2f1f-4988-90cc-efd5184ef003"
	FixtureTableUUID  = "89af91c0-033d-4e30-8ac4-f29a3b407dc1"
	FixtureImportUUID = "a35830e1-4535-47c6-aa23-be295a57ee1c"

	FixtureVizActionID    = "3210fd0d-5e41-4b0e-a44e-9b8daa84b0cc"
	FixtureTableActionID  = "c51e1e7f-8b4e-4914-9aae-091b6c16ed3a"
	FixtureImportActionID = "b49e497c-19b2-49f7-b9a2-0d837016c151"

	FixtureFramework = "2019.10.0"

	// FixtureCitationKey is the framework's own citation, in the
	// key shape the framework records ("domain|package:version|index").
	FixtureCitationKey = "framework|qiime2:2019.10.0|0"
)

// Identifiers of the pipeline fixture history: diversity core_metrics run
// on the imported table, saving two of its outputs. Each saved output is an
// alias of a result produced inside the pipeline.
const (
	FixturePipelineVizUUID   = "c4caf5eb-76ae-4f51-9937-1a8e9dd0f4e5"
	FixturePipelineTableUUID = "57acfa0c-acaf-4b72-a7e3-0f4c30ee4b31"
	FixtureInnerVizUUID      = "9f2b1a77-3aa3-43a5-bf3c-53c845f9e9b9"
	FixtureInnerTableUUID    = "2a8f3c4d-23de-4a07-9f72-7f6e8c3b4f1a"

	FixturePipelineActionID   = "e6b37bd1-4b17-4320-8a09-32cb7e0cc2f1"
	FixtureInnerVizActionID   = "1c8d0b9e-461a-4d9f-a2cf-7e3b92a41c55"
	FixtureInnerTableActionID = "7d4e5f6a-8b9c-4d0e-9f1a-2b3c4d5e6f70"
)

// FixtureCitationsBib is a minimal citations.bib body.
const FixtureCitationsBib = `@article{` + FixtureCitationKey + `,
  author = {Bolyen, Evan and Rideout, Jai Ram and Dillon, Matthew R},
  title = {Reproducible, interactive, scalable and extensible microbiome data science using QIIME 2},
  journal = {Nature Biotechnology},
  volume = {37},
  year = {2019},
}
`

// FixtureStudyMetadataTSV is a minimal study metadata file.
const FixtureStudyMetadataTSV = "sample-id\tbarcode\nL1S8\tAGCTGACTAGTC\nL1S57\tACACACTATGGC\n"

// MetadataYAML renders a metadata.yaml body. An empty format renders as
// null, the way Visualizations record it.
func MetadataYAML(uuid, semanticType, format string) string {
	if format == "" {
		return fmt.Sprintf("uuid: %s\ntype: %s\nformat: null\n", uuid, semanticType)
	}
	return fmt.Sprintf("uuid: %s\ntype: %s\nformat: %s\n", uuid, semanticType, format)
}

// FixtureImportActionYAML renders the action record of the imported table.
func FixtureImportActionYAML() string {
	return fmt.Sprintf(`action:
    type: import
    format: BIOMV210DirFmt
    manifest:
    -   name: feature-table.biom
        md5sum: 4d9cf31be01b7a0435b5b8b694bcebea
execution:
    uuid: %s
    runtime:
        start: '2020-01-14T17:21:55.898177-07:00'
        end: '2020-01-14T17:21:56.428458-07:00'
        duration: 530281 microseconds
environment:
    plugins: {}
    framework:
        version: %s
    python: 3.6.7
`, FixtureImportActionID, FixtureFramework)
}

// FixtureRarefyActionYAML renders the action record of the rarefied table.
func FixtureRarefyActionYAML() string {
	return fmt.Sprintf(`action:
    type: method
    plugin: !ref 'environment:plugins:feature-table'
    action: rarefy
    inputs:
    -   table: %s
    parameters:
    -   sampling_depth: 100
    -   with_replacement: false
    output-name: rarefied_table
    citations:
    -   !cite 'framework|qiime2:2019.10.0|0'
execution:
    uuid: %s
    runtime:
        start: '2020-01-14T17:21:58.298701-07:00'
        end: '2020-01-14T17:21:58.827295-07:00'
        duration: 528594 microseconds
environment:
    plugins:
        feature-table:
            version: %s
    framework:
        version: %s
    python: 3.6.7
`, FixtureImportUUID, FixtureTableActionID, FixtureFramework, FixtureFramework)
}

// FixtureVizActionYAML renders the action record of the visualization.
func FixtureVizActionYAML() string {
	return fmt.Sprintf(`action:
    type: visualizer
    plugin: !ref 'environment:plugins:diversity'
    action: beta_rarefaction
    inputs:
    -   table: %s
    parameters:
    -   metric: jaccard
    -   clustering_method: nj
    -   metadata: !metadata 'metadata.tsv'
    -   sampling_depth: 100
    output-name: visualization
execution:
    uuid: %s
    runtime:
        start: '2020-01-14T17:21:59.898177-07:00'
        end: '2020-01-14T17:22:01.874050-07:00'
        duration: 1 second, 975873 microseconds
environment:
    plugins:
        diversity:
            version: %s
    framework:
        version: %s
    python: 3.6.7
`, FixtureTableUUID, FixtureVizActionID, FixtureFramework, FixtureFramework)
}

// WithAncestor records one ancestor's provenance files under
// provenance/artifacts/<uuid>/ in format v5.
func (b *ArchiveBuilder) WithAncestor(uuid, semanticType, format, actionYAML string) *ArchiveBuilder {
	prefix := "provenance/artifacts/" + uuid
	return b.
		WithFile(prefix+"/metadata.yaml", MetadataYAML(uuid, semanticType, format)).
		WithFile(prefix+"/VERSION", VersionFileContents("5", FixtureFramework)).
		WithFile(prefix+"/action/action.yaml", actionYAML).
		WithFile(prefix+"/citations.bib", FixtureCitationsBib)
}

// FixtureVizArchive assembles a complete checksum-valid v5 visualization
// archive holding the canonical three-result history.
func FixtureVizArchive() *ArchiveBuilder {
	return NewArchiveBuilder(FixtureVizUUID).
		WithVersion("5", FixtureFramework).
		WithFile("metadata.yaml", MetadataYAML(FixtureVizUUID, "Visualization", "")).
		WithFile("data/index.html", "<html></html>\n").
		WithFile("provenance/metadata.yaml", MetadataYAML(FixtureVizUUID, "Visualization", "")).
		WithFile("provenance/VERSION", VersionFileContents("5", FixtureFramework)).
		WithFile("provenance/action/action.yaml", FixtureVizActionYAML()).
		WithFile("provenance/action/metadata.tsv", FixtureStudyMetadataTSV).
		WithFile("provenance/citations.bib", FixtureCitationsBib).
		WithAncestor(FixtureTableUUID, "FeatureTable[Frequency]", "BIOMV210DirFmt", FixtureRarefyActionYAML()).
		WithAncestor(FixtureImportUUID, "FeatureTable[Frequency]", "BIOMV210DirFmt", FixtureImportActionYAML()).
		WithChecksums()
}

// FixtureTableArchive assembles the intermediate rarefied table saved as
// its own checksum-valid v5 artifact archive.
func FixtureTableArchive() *ArchiveBuilder {
	return NewArchiveBuilder(FixtureTableUUID).
		WithVersion("5", FixtureFramework).
		WithFile("metadata.yaml", MetadataYAML(FixtureTableUUID, "FeatureTable[Frequency]", "BIOMV210DirFmt")).
		WithFile("data/feature-table.biom", "not really biom\n").
		WithFile("provenance/metadata.yaml", MetadataYAML(FixtureTableUUID, "FeatureTable[Frequency]", "BIOMV210DirFmt")).
		WithFile("provenance/VERSION", VersionFileContents("5", FixtureFramework)).
		WithFile("provenance/action/action.yaml", FixtureRarefyActionYAML()).
		WithFile("provenance/citations.bib", FixtureCitationsBib).
		WithAncestor(FixtureImportUUID, "FeatureTable[Frequency]", "BIOMV210DirFmt", FixtureImportActionYAML()).
		WithChecksums()
}

// FixturePipelineActionYAML renders the action record of one saved
// core_metrics output. The same execution produced every output, so the
// execution uuid is shared; alias-of names the inner result the saved
// output stands in for.
func FixturePipelineActionYAML(outputName, aliasOf string) string {
	return fmt.Sprintf(`action:
    type: pipeline
    plugin: !ref 'environment:plugins:diversity'
    action: core_metrics
    inputs:
    -   table: %s
    parameters:
    -   sampling_depth: 100
    output-name: %s
    alias-of: %s
execution:
    uuid: %s
    runtime:
        start: '2020-01-14T17:23:02.114312-07:00'
        end: '2020-01-14T17:23:29.918003-07:00'
        duration: 27 seconds, 803691 microseconds
environment:
    plugins:
        diversity:
            version: %s
    framework:
        version: %s
    python: 3.6.7
`, FixtureImportUUID, outputName, aliasOf, FixturePipelineActionID, FixtureFramework, FixtureFramework)
}

// fixtureInnerTableActionYAML is the rarefy call core_metrics ran
// internally to produce the aliased table.
func fixtureInnerTableActionYAML() string {
	return fmt.Sprintf(`action:
    type: method
    plugin: !ref 'environment:plugins:feature-table'
    action: rarefy
    inputs:
    -   table: %s
    parameters:
    -   sampling_depth: 100
    output-name: rarefied_table
execution:
    uuid: %s
    runtime:
        start: '2020-01-14T17:23:02.704989-07:00'
        end: '2020-01-14T17:23:03.169310-07:00'
        duration: 464321 microseconds
environment:
    plugins:
        feature-table:
            version: %s
    framework:
        version: %s
    python: 3.6.7
`, FixtureImportUUID, FixtureInnerTableActionID, FixtureFramework, FixtureFramework)
}

// fixtureInnerVizActionYAML is the emperor plot core_metrics ran
// internally to produce the aliased visualization.
func fixtureInnerVizActionYAML() string {
	return fmt.Sprintf(`action:
    type: visualizer
    plugin: !ref 'environment:plugins:emperor'
    action: plot
    inputs:
    -   pcoa: %s
    output-name: visualization
execution:
    uuid: %s
    runtime:
        start: '2020-01-14T17:23:27.511208-07:00'
        end: '2020-01-14T17:23:29.903667-07:00'
        duration: 2 seconds, 392459 microseconds
environment:
    plugins:
        emperor:
            version: %s
    framework:
        version: %s
    python: 3.6.7
`, FixtureInnerTableUUID, FixtureInnerVizActionID, FixtureFramework, FixtureFramework)
}

// FixturePipelineVizArchive assembles the saved jaccard_emperor output of
// the core_metrics pipeline, including the inner results it aliases.
func FixturePipelineVizArchive() *ArchiveBuilder {
	return NewArchiveBuilder(FixturePipelineVizUUID).
		WithVersion("5", FixtureFramework).
		WithFile("metadata.yaml", MetadataYAML(FixturePipelineVizUUID, "Visualization", "")).
		WithFile("data/index.html", "<html></html>\n").
		WithFile("provenance/metadata.yaml", MetadataYAML(FixturePipelineVizUUID, "Visualization", "")).
		WithFile("provenance/VERSION", VersionFileContents("5", FixtureFramework)).
		WithFile("provenance/action/action.yaml", FixturePipelineActionYAML("jaccard_emperor", FixtureInnerVizUUID)).
		WithFile("provenance/citations.bib", FixtureCitationsBib).
		WithAncestor(FixtureInnerVizUUID, "Visualization", "", fixtureInnerVizActionYAML()).
		WithAncestor(FixtureInnerTableUUID, "FeatureTable[Frequency]", "BIOMV210DirFmt", fixtureInnerTableActionYAML()).
		WithAncestor(FixtureImportUUID, "FeatureTable[Frequency]", "BIOMV210DirFmt", FixtureImportActionYAML()).
		WithChecksums()
}

// FixturePipelineTableArchive assembles the saved rarefied_table output of
// the same core_metrics execution.
func FixturePipelineTableArchive() *ArchiveBuilder {
	return NewArchiveBuilder(FixturePipelineTableUUID).
		WithVersion("5", FixtureFramework).
		WithFile("metadata.yaml", MetadataYAML(FixturePipelineTableUUID, "FeatureTable[Frequency]", "BIOMV210DirFmt")).
		WithFile("data/feature-table.biom", "not really biom\n").
		WithFile("provenance/metadata.yaml", MetadataYAML(FixturePipelineTableUUID, "FeatureTable[Frequency]", "BIOMV210DirFmt")).
		WithFile("provenance/VERSION", VersionFileContents("5", FixtureFramework)).
		WithFile("provenance/action/action.yaml", FixturePipelineActionYAML("rarefied_table", FixtureInnerTableUUID)).
		WithFile("provenance/citations.bib", FixtureCitationsBib).
		WithAncestor(FixtureInnerTableUUID, "FeatureTable[Frequency]", "BIOMV210DirFmt", fixtureInnerTableActionYAML()).
		WithAncestor(FixtureImportUUID, "FeatureTable[Frequency]", "BIOMV210DirFmt", FixtureImportActionYAML()).
		WithChecksums()
}

// FixtureV0Archive assembles an archive predating provenance tracking.
func FixtureV0Archive(rootUUID string) *ArchiveBuilder {
	return NewArchiveBuilder(rootUUID).
		WithVersion("0", "2.0.5").
		WithFile("metadata.yaml", MetadataYAML(rootUUID, "FeatureTable[Frequency]", "BIOMV210DirFmt")).
		WithFile("data/feature-table.biom", "not really biom\n")
}
