/*
 * doc.go, part of abpmovie.
 *
 * Copyright 2024 Raul Mera <rmera{at}usachDOTcl>
 *
 * This program is free software; you can redistribute it and/or modify
 * it under the terms of the GNU Lesser General Public License as
 * published by the Free Software Foundation; either version 2.1 of the
 * License, or (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU General Public License for more details.
 *
 * You should have received a copy of the GNU Lesser General
 * Public License along with this program.  If not, see
 * <http://www.gnu.org/licenses/>.
 *
 */

/*Package abp is the main package of abpmovie. It provides the trajectory, geometry and
particle-selection types used to turn a recorded active Brownian particle simulation into videos.


	**abpmovie Capabilities**


    Reads the binary trajectories written by the 3D confined-ABP simulation (optionally zstd or
	gzip compressed), and the older CSV output, as a fallback (package traj).

    Obtains the confining cylinder from the simulation parameter file or, if that is not
	usable, from the particle positions themselves.

    Selects a random, reproducible (given a seed) subset of particles to follow, each with its
	own color.

    Renders one image per timestep, concurrently, with gonum/plot (packages frames,
	render/gplot) and assembles them into an H.264 video with ffmpeg (package encode).

Positions and orientations are gonum spatial/r3 vectors. Element i of every per-particle slice
belongs to particle i; identifiers are not stored in the binary files.

All the errors caused by bad input or by a failing external program can be matched with
errors.Is against the Err* values in this package.*/
package abp
